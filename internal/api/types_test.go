package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDocumentUpdateMarshalKeepsEmptyTags(t *testing.T) {
	title := "untagged"
	body, err := json.Marshal(&DocumentUpdate{Title: &title, Tags: []int64{}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"tags":[]`) {
		t.Errorf("body = %s, want an explicit empty tags list", body)
	}
}

func TestDocumentUpdateMarshalOmitsUnsetFields(t *testing.T) {
	title := "rename only"
	body, err := json.Marshal(&DocumentUpdate{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	got := string(body)
	for _, key := range []string{"tags", "custom_fields", "correspondent", "created"} {
		if strings.Contains(got, key) {
			t.Errorf("body = %s, field %q should stay out of a partial update", got, key)
		}
	}
}
