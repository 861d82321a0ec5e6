package scoring

import "github.com/banddepth/banddepth/pkg/depthv1"

// Response converts a successful batch to its wire form.
func (b *Batch) Response() *depthv1.QueryResponse {
	out := &depthv1.QueryResponse{
		EnsembleID: b.EnsembleID,
		Version:    b.Version,
		Samples:    b.Samples,
		Timepoints: b.Timepoints,
		Results:    make([]depthv1.CurveDepth, len(b.Results)),
		ElapsedMs:  float64(b.Elapsed.Microseconds()) / 1000,
	}
	for i, r := range b.Results {
		out.Results[i] = depthv1.CurveDepth{
			CurveID: r.CurveID,
			Depth:   r.Depth,
			Count:   r.Count,
			Total:   r.Total,
			Cached:  r.Cached,
		}
	}
	if i := b.Deepest(); i >= 0 {
		out.Deepest = b.Results[i].CurveID
	}
	return out
}

// RequestFrom converts a wire request.
func RequestFrom(in *depthv1.QueryRequest) Request {
	return Request{EnsembleID: in.EnsembleID, Curves: in.Curves, Labels: in.Labels}
}
