// Package printing turns policy documents into PDFs.
//
// Templates under templates/ are rendered with html/template and the result
// is printed to A4 PDF by a headless Chrome driven through chromedp:
//
//	templates := printing.NewTemplateSet()
//	html, err := templates.Render(policy.DocumentKindCertificate, data)
//	...
//	pdf, err := renderer.RenderPDF(ctx, html)
package printing
