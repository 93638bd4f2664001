package catalog

import "testing"

func TestParseLimit(t *testing.T) {
	testCases := map[string]int{
		"":     DefaultMovieLimit,
		"abc":  DefaultMovieLimit,
		"0":    DefaultMovieLimit,
		"-3":   DefaultMovieLimit,
		"5":    5,
		" 7 ":  7,
		"100":  MaxMovieLimit,
		"5000": MaxMovieLimit,
	}
	for raw, expected := range testCases {
		if limit := ParseLimit(raw); limit != expected {
			t.Fatalf("ParseLimit(%q): expected %d, got %d", raw, expected, limit)
		}
	}
}

func TestMoviePatchApply(t *testing.T) {
	title := "New"
	genres := []string{"Drama"}
	patch := MoviePatch{Title: &title, Genres: &genres}
	if patch.IsEmpty() {
		t.Fatalf("patch with fields must not be empty")
	}
	if !(MoviePatch{}).IsEmpty() {
		t.Fatalf("zero patch must be empty")
	}

	patched := patch.Apply(Movie{ID: "1", Title: "Old", Year: 1999, Genres: []string{"Comedy"}})
	if patched.Title != "New" || patched.Year != 1999 || patched.Genres[0] != "Drama" || patched.ID != "1" {
		t.Fatalf("unexpected patched movie %+v", patched)
	}
}

func TestCommentPatchApply(t *testing.T) {
	text := "edited"
	patched := CommentPatch{Text: &text}.Apply(Comment{Name: "Ann", Text: "original"})
	if patched.Text != "edited" || patched.Name != "Ann" {
		t.Fatalf("unexpected patched comment %+v", patched)
	}
	if !(CommentPatch{}).IsEmpty() {
		t.Fatalf("zero patch must be empty")
	}
}
