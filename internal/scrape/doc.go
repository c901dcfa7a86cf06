// Package scrape implements the single-page render pipeline: URL validation,
// browser session lifecycle, layered page loading, clickable element
// extraction, Markdown conversion, and the failure classification that maps
// browser errors onto HTTP semantics.
//
// The browser engine and the Markdown converter are collaborators behind the
// Provisioner, Browser, Page, and Converter interfaces; internal/browser and
// internal/markdown supply the production implementations.
package scrape
