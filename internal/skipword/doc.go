// Package skipword masks literal terms that must survive translation
// untouched, such as brand names, behind [S{n}] tokens.
package skipword
