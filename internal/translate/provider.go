// Package translate talks to machine-translation services.
package translate

import (
	"context"
	"fmt"
)

// Provider translates strings between locales. TranslateBatch returns
// exactly one result per input, in input order.
type Provider interface {
	Name() string
	TranslateBatch(ctx context.Context, values []string, source, target string) ([]string, error)
}

// LanguageLister is implemented by providers that can report which
// language codes they accept.
type LanguageLister interface {
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// checkCount guards the positional mapping callers rely on
func checkCount(got []string, want int) error {
	if len(got) != want {
		return fmt.Errorf("got %d translations, expected %d", len(got), want)
	}
	return nil
}
