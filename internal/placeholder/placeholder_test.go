package placeholder

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToPlaceholders_EmptyTagsBecomeVoid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		text  string
		count int
	}{
		{"icon", `Click the <i class="fas fa-user"></i> icon.`, "Click the [HV1] icon.", 1},
		{"italic with text", `This is <i>important</i> text.`, "This is [HE1]important[/HE1] text.", 1},
		{"mixed icon and italic", `Click <i class="fas fa-save"></i> to <i>save</i> work.`, "Click [HV1] to [HE1]save[/HE1] work.", 2},
		{"empty span", `Text<span class="spacer"></span>more.`, "Text[HV1]more.", 1},
		{"icon inside link", `<a href="/profile"><i class="fa fa-user"></i> Profile</a>`, "[HA1][HV1] Profile[/HA1]", 2},
		{"multiple icons", `<i class="far fa-edit"></i> Edit <i class="fas fa-trash"></i> Delete`, "[HV1] Edit [HV2] Delete", 2},
		{"v6 classes", `Icon <i class="fa-solid fa-check"></i> here.`, "Icon [HV1] here.", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTMLToPlaceholders(tt.input)
			assert.Equal(t, tt.text, got.Text)
			assert.Len(t, got.Replacements, tt.count)
		})
	}
}

func TestHTMLToPlaceholders_WhitespaceOnlyTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		text  string
		count int
	}{
		{"single space", `Before<i class="fa fa-icon"> </i>after.`, "Before[HV1] after.", 1},
		{"multiple spaces", `Before<i class="fa">   </i>after.`, "Before[HV1] after.", 1},
		{"tab", "Before<span class=\"x\">\t</span>after.", "Before[HV1] after.", 1},
		{"newline", "Before<span class=\"x\">\n</span>after.", "Before[HV1] after.", 1},
		{"nested in link", `<a href="/user"><i class="fa fa-user"> </i>Profile</a>`, "[HA1][HV1] Profile[/HA1]", 2},
		{"empty and whitespace", `<i class="fa-edit"></i> Edit <i class="fa-save"> </i>Save`, "[HV1] Edit [HV2] Save", 2},
		{"real content", `Click <i class="emphasis">here</i> now.`, "Click [HE1]here[/HE1] now.", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTMLToPlaceholders(tt.input)
			assert.Equal(t, tt.text, got.Text)
			assert.Len(t, got.Replacements, tt.count)
		})
	}
}

func TestPlaceholdersToHTML_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty tag", `Click the <i class="fas fa-user"></i> icon.`, `Click the <i class="fas fa-user"></i> icon.`},
		{"whitespace moved outside", `Before<i class="fa fa-icon"> </i>after.`, `Before<i class="fa fa-icon"></i> after.`},
		{"spaces collapsed", `Before<i class="fa">   </i>after.`, `Before<i class="fa"></i> after.`},
		{"tab collapsed", "Before<span class=\"x\">\t</span>after.", `Before<span class="x"></span> after.`},
		{"newline collapsed", "Before<span class=\"x\">\n</span>after.", `Before<span class="x"></span> after.`},
		{"nested whitespace icon", `<a href="/user"><i class="fa fa-user"> </i>Profile</a>`, `<a href="/user"><i class="fa fa-user"></i> Profile</a>`},
		{"mixed", `<i class="fa-edit"></i> Edit <i class="fa-save"> </i>Save`, `<i class="fa-edit"></i> Edit <i class="fa-save"></i> Save`},
		{"real content", `Click <i class="emphasis">here</i> now.`, `Click <i class="emphasis">here</i> now.`},
		{"icon in link", `<a href="/profile"><i class="fa fa-user"></i> Profile</a>`, `<a href="/profile"><i class="fa fa-user"></i> Profile</a>`},
		{"entities kept", `Fish &amp; <b>chips</b> &copy; 2024`, `Fish &amp; <b>chips</b> &copy; 2024`},
		{"void elements", `Line one<br>line <img src="/a.png" alt="a"/> two`, `Line one<br>line <img src="/a.png" alt="a"/> two`},
		{"upper case tags", `<B CLASS="x">Bold</B> text`, `<B CLASS="x">Bold</B> text`},
		{"comment", `Hello <!-- note --> world`, `Hello <!-- note --> world`},
		{"plain text", `No markup here.`, `No markup here.`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := HTMLToPlaceholders(tt.input)
			assert.Equal(t, tt.want, PlaceholdersToHTML(enc.Text, enc.Replacements))
		})
	}
}

func TestHTMLToPlaceholders_NestedOrdering(t *testing.T) {
	t.Parallel()

	got := HTMLToPlaceholders(`<b>Very <i>very</i></b> <a href="/x">go <em>now</em></a><a href="/y">!</a>`)
	assert.Equal(t, "[HE1]Very [HE2]very[/HE2][/HE1] [HA1]go [HE3]now[/HE3][/HA1][HA2]![/HA2]", got.Text)

	require.Len(t, got.Replacements, 5)
	assert.Equal(t, Replacement{Category: Paired, Index: 1, Open: "<b>", Close: "</b>"}, got.Replacements[0])
	assert.Equal(t, Replacement{Category: Paired, Index: 2, Open: "<i>", Close: "</i>"}, got.Replacements[1])
	assert.Equal(t, Replacement{Category: Anchor, Index: 1, Open: `<a href="/x">`, Close: "</a>"}, got.Replacements[2])
	assert.Equal(t, Replacement{Category: Paired, Index: 3, Open: "<em>", Close: "</em>"}, got.Replacements[3])
	assert.Equal(t, Replacement{Category: Anchor, Index: 2, Open: `<a href="/y">`, Close: "</a>"}, got.Replacements[4])
}

func TestHTMLToPlaceholders_ElementWithOnlyChildElementIsPaired(t *testing.T) {
	t.Parallel()

	got := HTMLToPlaceholders(`<span class="badge"><i class="fa fa-star"></i></span>`)
	assert.Equal(t, "[HE1][HV1][/HE1]", got.Text)
	assert.Equal(t, `<span class="badge"><i class="fa fa-star"></i></span>`, PlaceholdersToHTML(got.Text, got.Replacements))
}

func TestHTMLToPlaceholders_IndicesIncreasePerCategory(t *testing.T) {
	t.Parallel()

	got := HTMLToPlaceholders(`<i></i><b>a</b><a href="#">b</a><br><b>c</b><a href="#">d</a>`)

	last := map[Category]int{}
	for _, r := range got.Replacements {
		assert.Equal(t, last[r.Category]+1, r.Index, "category %s", r.Category)
		last[r.Category] = r.Index
	}
	assert.Equal(t, map[Category]int{Void: 2, Paired: 2, Anchor: 2}, last)
}

func TestHTMLToPlaceholders_DeepNesting(t *testing.T) {
	t.Parallel()

	const depth = 20000
	input := strings.Repeat("<span>", depth) + "deep" + strings.Repeat("</span>", depth)

	got := HTMLToPlaceholders(input)
	require.Len(t, got.Replacements, depth)
	assert.True(t, strings.HasPrefix(got.Text, "[HE1][HE2]"))
	assert.Contains(t, got.Text, "[HE20000]deep[/HE20000]")
	assert.Equal(t, input, PlaceholdersToHTML(got.Text, got.Replacements))
}

func TestHTMLToPlaceholders_Unbalanced(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"unclosed element", `Start <b>bold text`},
		{"stray end tag", `Text</span> more`},
		{"crossed tags", `<b><i>x</b></i>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := HTMLToPlaceholders(tt.input)
			assert.Equal(t, tt.input, PlaceholdersToHTML(enc.Text, enc.Replacements))
		})
	}
}

func TestPlaceholdersToHTML_TranslatedText(t *testing.T) {
	t.Parallel()

	enc := HTMLToPlaceholders(`Click <a href="/go">here</a> to <b>continue</b>.`)
	require.Equal(t, "Click [HA1]here[/HA1] to [HE1]continue[/HE1].", enc.Text)

	translated := "Haga clic [HA1]aquí[/HA1] para [HE1]continuar[/HE1]."
	assert.Equal(t,
		`Haga clic <a href="/go">aquí</a> para <b>continuar</b>.`,
		PlaceholdersToHTML(translated, enc.Replacements))
}

func TestPlaceholdersToHTML_UnknownMarkersKept(t *testing.T) {
	t.Parallel()

	enc := HTMLToPlaceholders(`<b>one</b>`)
	assert.Equal(t, "<b>one</b> [HE7]", PlaceholdersToHTML("[HE1]one[/HE1] [HE7]", enc.Replacements))
	assert.Equal(t, "[HV1] text", PlaceholdersToHTML("[HV1] text", nil))
}

func TestMarkers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[HV3]", Replacement{Category: Void, Index: 3}.Marker())
	assert.Equal(t, "", Replacement{Category: Void, Index: 3}.EndMarker())
	assert.Equal(t, "[HE12]", Replacement{Category: Paired, Index: 12}.Marker())
	assert.Equal(t, "[/HE12]", Replacement{Category: Paired, Index: 12}.EndMarker())
	assert.Equal(t, "[HA1]", Replacement{Category: Anchor, Index: 1}.Marker())
	assert.Equal(t, "[/HA1]", Replacement{Category: Anchor, Index: 1}.EndMarker())
}

func TestResult_JSON(t *testing.T) {
	t.Parallel()

	enc := HTMLToPlaceholders(`Go <a href="/x">home</a><br>`)
	data, err := json.Marshal(enc)
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, `Go <a href="/x">home</a><br>`, PlaceholdersToHTML(decoded.Text, decoded.Replacements))
}
