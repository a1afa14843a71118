// Package usage accumulates token and cost metrics across concurrent
// translation calls and defines the ledger they are reported to.
package usage
