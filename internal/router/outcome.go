package router

import (
	"net/http"

	"contact-gateway/internal/common/config"
	"contact-gateway/internal/models"
)

// Kind tags the arms of an Outcome.
type Kind int

const (
	KindLoaded Kind = iota
	KindThankYou
	KindRedirect
	KindFailure
	KindNotFound
)

// Outcome is the router's tagged result type. A redirect is a returned value,
// never an error; error-handling paths do not see it.
type Outcome struct {
	Kind Kind

	// Redirect arm.
	Location string
	Status   int

	// Loaded / Failure arms.
	Form         *models.FormState
	CategorySlug string
	Category     *config.CategoryConfig

	// ThankYou arm.
	ShowThankYou bool
}

// Loaded is the initial render state for a directly matched category.
func Loaded(form *models.FormState, slug string, category config.CategoryConfig) Outcome {
	return Outcome{
		Kind:         KindLoaded,
		Form:         form,
		CategorySlug: slug,
		Category:     &category,
	}
}

// ThankYou is the terminal post-submit display state.
func ThankYou(slug string) Outcome {
	return Outcome{Kind: KindThankYou, CategorySlug: slug, ShowThankYou: true}
}

// PermanentRedirect points a label-derived alias at its canonical path.
func PermanentRedirect(location string) Outcome {
	return Outcome{Kind: KindRedirect, Location: location, Status: http.StatusMovedPermanently}
}

// SubmissionRedirect sends a successful submit to the success page.
func SubmissionRedirect(location string) Outcome {
	return Outcome{Kind: KindRedirect, Location: location, Status: http.StatusSeeOther}
}

// Failed preserves the posted data alongside the error map.
func Failed(form *models.FormState) Outcome {
	return Outcome{Kind: KindFailure, Form: form}
}

// NotFound signals an unknown category slug.
func NotFound() Outcome {
	return Outcome{Kind: KindNotFound}
}
