// Package repository keeps presentation templates close to the service.
package repository

import "context"

// TemplateSource fetches a template blob by URL.
type TemplateSource interface {
	DownloadTemplate(ctx context.Context, url string) ([]byte, error)
}

// TemplateSourceFunc adapts a function to TemplateSource.
type TemplateSourceFunc func(ctx context.Context, url string) ([]byte, error)

// DownloadTemplate calls f.
func (f TemplateSourceFunc) DownloadTemplate(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}
