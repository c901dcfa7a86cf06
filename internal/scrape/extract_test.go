package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildElements_AnchorsBeforeButtons(t *testing.T) {
	t.Parallel()

	raw := Candidates{
		Anchors: []AnchorCandidate{
			{Text: " First ", Href: "https://example.com/a"},
			{Text: "Second", Href: "https://example.com/b"},
		},
		Buttons: []ButtonCandidate{
			{Text: "Go"},
		},
	}

	got := BuildElements(raw)
	require.Equal(t, []Element{
		{Text: "First", Href: "https://example.com/a", Type: ElementAnchor},
		{Text: "Second", Href: "https://example.com/b", Type: ElementAnchor},
		{Text: "Go", Href: "#", Type: ElementButton},
	}, got)
}

func TestBuildElements_InclusionRules(t *testing.T) {
	t.Parallel()

	raw := Candidates{
		Anchors: []AnchorCandidate{
			{Text: "   ", Href: "https://example.com/blank-text"},
			{Text: "No href", Href: ""},
			{Text: "\n\tKept ", Href: "https://example.com/kept"},
			{Text: "Kept", Href: "https://example.com/kept"},
		},
		Buttons: []ButtonCandidate{
			{Text: "", OnClick: "submit()"},
			{Text: "Click", OnClick: "doThing()", DataAction: "ignored"},
			{Text: "Data", DataAction: "open-menu"},
		},
	}

	got := BuildElements(raw)
	require.Len(t, got, 4)
	require.Equal(t, "Kept", got[0].Text)
	require.Equal(t, got[0], got[1], "duplicates are preserved")
	require.Equal(t, Element{Text: "Click", Href: "doThing()", Type: ElementButton}, got[2])
	require.Equal(t, Element{Text: "Data", Href: "open-menu", Type: ElementButton}, got[3])
}

func TestBuildElements_TrimsByteOrderMark(t *testing.T) {
	t.Parallel()

	raw := Candidates{
		Anchors: []AnchorCandidate{
			{Text: "\ufeff", Href: "https://example.com/bom"},
			{Text: "\ufeff Docs\u00a0", Href: "https://example.com/docs"},
		},
		Buttons: []ButtonCandidate{{Text: "\ufeff\u2003"}},
	}

	got := BuildElements(raw)
	require.Equal(t, []Element{{Text: "Docs", Href: "https://example.com/docs", Type: ElementAnchor}}, got)
}

func TestBuildElements_EmptyIsNotNil(t *testing.T) {
	t.Parallel()

	got := BuildElements(Candidates{})
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestExtractElements_UsesScript(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		candidates: Candidates{Anchors: []AnchorCandidate{{Text: "Home", Href: "https://example.com/"}}},
	}
	got, err := ExtractElements(context.Background(), page)
	require.NoError(t, err)
	require.Equal(t, ExtractionScript, page.evaluated)
	require.Equal(t, []Element{{Text: "Home", Href: "https://example.com/", Type: ElementAnchor}}, got)
}

func TestExtractElements_EvaluateError(t *testing.T) {
	t.Parallel()

	page := &fakePage{evaluateErr: errors.New("target crashed")}
	_, err := ExtractElements(context.Background(), page)
	require.ErrorContains(t, err, "target crashed")
}
