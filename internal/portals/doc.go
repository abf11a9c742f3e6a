// Package portals defines the source adapter contract and the helpers the
// adapters share.
//
// Adapters expose one run as an iter.Seq2 of events and errors so a
// malformed record never aborts the others. Browser-based adapters drive a
// run-scoped Chromium through chromedp and extract fields from DOM snapshots
// with goquery, which keeps the extraction rules testable on saved HTML.
package portals
