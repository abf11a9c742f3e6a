// Package goout scrapes concerts from goout.net, a JavaScript-rendered
// catalog. A run launches its own headless browser, narrows the listing to
// concerts in one country and pages through it with the "Show more" button.
package goout
