// Package e2e drives the assembled learnpath application over HTTP the way a
// browser would, asserting on the data-test hooks of the rendered pages.
//
// Browser runs via chromedp are skipped under -short or when no Chrome
// binary is installed.
package e2e
