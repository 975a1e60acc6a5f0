// Package scrape walks job board listings and writes one raw CSV row per
// posting. Each board is described by a selector table (SourceConfig); pages
// are fetched with colly, or through an owned headless Chrome handle for
// boards that need JavaScript.
package scrape
