// Package recipe renders the multi-stage container build recipe from the
// packaging settings and the architecture profile table.
//
// Keeping the recipe as a template over the same table the fetcher uses means
// the shell fallback in the image build and the Go fetcher always agree on
// URLs and digest pins.
package recipe
