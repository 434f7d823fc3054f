// Package report writes analysis reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown for sharing, with a mermaid frame chart
//   - ChartWriter: An HTML line chart of the analyzed angle window
//
// Writers only read reports; the data structures live in the model package.
package report
