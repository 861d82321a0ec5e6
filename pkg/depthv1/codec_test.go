package depthv1

import (
	"testing"

	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	if c == nil {
		t.Fatal("json codec not registered")
	}
	if c.Name() != "json" {
		t.Errorf("Name: got %q, want json", c.Name())
	}
}

func TestCodec_QueryRequest(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	in := &QueryRequest{EnsembleID: "ref", Curves: [][]float64{{1, 2.5}, {-3, 0}}, Labels: []string{"a", "b"}}
	data, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"ensemble_id":"ref","curves":[[1,2.5],[-3,0]],"labels":["a","b"]}`
	if string(data) != want {
		t.Errorf("wire form:\n got %s\nwant %s", data, want)
	}

	var out QueryRequest
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.EnsembleID != "ref" || len(out.Curves) != 2 || out.Curves[0][1] != 2.5 || out.Labels[1] != "b" {
		t.Errorf("decoded: got %+v", out)
	}
}
