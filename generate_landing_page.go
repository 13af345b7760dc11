package mrzworker

import (
	"fmt"
	"strings"
)

// GenerateLandingPage will generate a simple landing page listing the endpoints
func GenerateLandingPage(endpoints map[string]string, order []string) string {

	var items strings.Builder
	for _, path := range order {
		fmt.Fprintf(&items, `<li><code>%s</code> %s</li>`, path, endpoints[path])
	}

	text := `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>open-mrz</title>` +
		`<style> html, body{font-family: "Fixedsys,Courier,monospace";}body {max-width: 960px; min-width: 320px;` +
		`margin: 0 auto;}section {margin: 3em 1.5em 0 1.5em;}li {margin-top: 0.8em;}` +
		`.nes-container {position: relative; padding: 1.5rem 2rem; border-color: #000; border-style: solid;` +
		`border-width: 4px;} .nes-container.with-title > .title {display: table;padding: 0 .5rem;margin: -2.2rem 0 1rem; font-size:` +
		`1rem;background-color: #fff;}</style></head><body>` +
		`<section class="nes-container with-title"><h2 class="title">open-mrz  ></h2>` +
		`<div><p>Status: RUNNING</p>` +
		`<pre>P&lt;UTOERIKSSON&lt;&lt;ANNA&lt;MARIA&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;&lt;
L898902C36UTO7408122F1204159ZE184226B&lt;&lt;&lt;&lt;&lt;10</pre>` +
		`<ul>` + items.String() + `</ul></div>` +
		`<p>Need <a href="https://godoc.org/github.com/xf0e/open-mrz">docs</a>?</p></section></body></html>`
	return text

}
