package extproc

import (
	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"

	"github.com/moesif/moesif-extproc-go/internal/event"
)

// streamState is the per-stream working set: the event under assembly and
// the two body accumulators. It is owned exclusively by the goroutine
// driving its stream and is never shared.
type streamState struct {
	event        *event.Event
	requestBody  []byte
	responseBody []byte
}

func newStreamState() *streamState {
	return &streamState{event: event.New()}
}

// handle applies one inbound processing message to the event and returns the
// matching pass-through acknowledgement. Acks carry no mutations: the
// adapter observes copies and never alters or withholds the gateway's own
// traffic. Headers and trailers never touch the body accumulators.
func (st *streamState) handle(req *extprocv3.ProcessingRequest) *extprocv3.ProcessingResponse {
	resp := &extprocv3.ProcessingResponse{}

	switch msg := req.GetRequest().(type) {
	case *extprocv3.ProcessingRequest_RequestHeaders:
		st.event.Request.SetHeaders(event.HeaderMapToMap(msg.RequestHeaders.GetHeaders()))
		resp.Response = &extprocv3.ProcessingResponse_RequestHeaders{
			RequestHeaders: &extprocv3.HeadersResponse{},
		}

	case *extprocv3.ProcessingRequest_RequestBody:
		st.requestBody = append(st.requestBody, msg.RequestBody.GetBody()...)
		if msg.RequestBody.GetEndOfStream() {
			st.event.Request.SetBody(st.requestBody)
		}
		resp.Response = &extprocv3.ProcessingResponse_RequestBody{
			RequestBody: &extprocv3.BodyResponse{},
		}

	case *extprocv3.ProcessingRequest_RequestTrailers:
		resp.Response = &extprocv3.ProcessingResponse_RequestTrailers{
			RequestTrailers: &extprocv3.TrailersResponse{},
		}

	case *extprocv3.ProcessingRequest_ResponseHeaders:
		st.event.EnsureResponse().SetHeaders(event.HeaderMapToMap(msg.ResponseHeaders.GetHeaders()))
		resp.Response = &extprocv3.ProcessingResponse_ResponseHeaders{
			ResponseHeaders: &extprocv3.HeadersResponse{},
		}

	case *extprocv3.ProcessingRequest_ResponseBody:
		st.responseBody = append(st.responseBody, msg.ResponseBody.GetBody()...)
		if msg.ResponseBody.GetEndOfStream() {
			st.event.EnsureResponse().SetBody(st.responseBody)
		}
		resp.Response = &extprocv3.ProcessingResponse_ResponseBody{
			ResponseBody: &extprocv3.BodyResponse{},
		}

	case *extprocv3.ProcessingRequest_ResponseTrailers:
		resp.Response = &extprocv3.ProcessingResponse_ResponseTrailers{
			ResponseTrailers: &extprocv3.TrailersResponse{},
		}
	}

	return resp
}
