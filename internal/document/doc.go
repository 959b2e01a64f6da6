// Package document scans an HTML article for citation markers and
// bibliography sources.
//
// Markers are <d-cite key="a, b"> elements, collected in source order.
// Bibliography sources are inline <script type="text/bibtex"> blocks and
// <d-bibliography src="..."> references. The scanner only reads; fetching
// a referenced bibliography is the caller's job.
package document
