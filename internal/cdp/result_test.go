package cdp

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

type versionResult struct {
	Product   string `json:"product"`
	UserAgent string `json:"userAgent"`
}

type frameTree struct {
	Frame struct {
		ID string `json:"id"`
	} `json:"frame"`
}

type frameTreeResult struct {
	FrameTree frameTree `json:"frameTree"`
}

type embeddedBase struct {
	Result json.RawMessage `json:"result"`
}

type embeddingResult struct {
	embeddedBase
	Extra string `json:"extra"`
}

func TestDecodeResult_SingleMemberUnwrapped(t *testing.T) {
	t.Parallel()

	got, err := decodeResult[string]("Page.captureScreenshot", json.RawMessage(`{"data":"abc"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
}

func TestDecodeResult_SingleMemberStruct(t *testing.T) {
	t.Parallel()

	got, err := decodeResult[frameTree]("Page.getFrameTree", json.RawMessage(`{"frameTree":{"frame":{"id":"F1"}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Frame.ID != "F1" {
		t.Errorf("expected frame F1, got %+v", got)
	}
}

func TestDecodeResult_SingleMemberContainer(t *testing.T) {
	t.Parallel()

	// T declares the member, so the whole object is its container.
	got, err := decodeResult[frameTreeResult]("Page.getFrameTree", json.RawMessage(`{"frameTree":{"frame":{"id":"F1"}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FrameTree.Frame.ID != "F1" {
		t.Errorf("expected frame F1, got %+v", got)
	}
}

func TestDecodeResult_FieldMatchIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	type result struct {
		FrameID string
	}
	got, err := decodeResult[result]("Page.navigate", json.RawMessage(`{"frameId":"F1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FrameID != "F1" {
		t.Errorf("expected F1, got %+v", got)
	}
}

func TestDecodeResult_EmbeddedField(t *testing.T) {
	t.Parallel()

	got, err := decodeResult[embeddingResult]("Runtime.evaluate", json.RawMessage(`{"result":{"type":"number"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got.Result) != `{"type":"number"}` {
		t.Errorf("expected embedded result, got %s", got.Result)
	}
}

func TestDecodeResult_MultiMember(t *testing.T) {
	t.Parallel()

	got, err := decodeResult[versionResult]("Browser.getVersion", json.RawMessage(`{"product":"Chrome/120","userAgent":"UA"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Product != "Chrome/120" || got.UserAgent != "UA" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestDecodeResult_TypeMismatchFallsBack(t *testing.T) {
	t.Parallel()

	// The single member does not fit T, but the whole object does.
	type wrapper struct {
		Nodes []int `json:"nodeIds"`
	}
	got, err := decodeResult[map[string][]int]("DOM.querySelectorAll", json.RawMessage(`{"nodeIds":[1,2]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, map[string][]int{"nodeIds": {1, 2}}) {
		t.Errorf("unexpected result: %v", got)
	}

	w, err := decodeResult[wrapper]("DOM.querySelectorAll", json.RawMessage(`{"nodeIds":[1,2]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(w.Nodes, []int{1, 2}) {
		t.Errorf("unexpected nodes: %v", w.Nodes)
	}
}

func TestDecodeResult_Slice(t *testing.T) {
	t.Parallel()

	got, err := decodeResult[[]int]("DOM.querySelectorAll", json.RawMessage(`{"nodeIds":[3,4]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []int{3, 4}) {
		t.Errorf("expected [3 4], got %v", got)
	}
}

func TestDecodeResult_EmptyObject(t *testing.T) {
	t.Parallel()

	if _, err := decodeResult[Empty]("Page.enable", json.RawMessage(`{}`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := decodeResult[Empty]("Page.reload", json.RawMessage(`{"ignored":1}`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDecodeResult_RawPassThrough(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{"a":1,"b":2}`)
	got, err := decodeResult[json.RawMessage]("X.y", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("expected %s, got %s", raw, got)
	}
}

func TestDecodeResult_Mismatch(t *testing.T) {
	t.Parallel()

	_, err := decodeResult[versionResult]("Browser.getVersion", json.RawMessage(`{"product":1,"userAgent":2}`))
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if decErr.Method != "Browser.getVersion" {
		t.Errorf("unexpected method %q", decErr.Method)
	}
}

func TestDecodeResult_NonObject(t *testing.T) {
	t.Parallel()

	got, err := decodeResult[[]string]("X.y", json.RawMessage(`["a","b"]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("unexpected result: %v", got)
	}
}
