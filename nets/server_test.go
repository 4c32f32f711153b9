package nets

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reusee/dscope"

	"github.com/reusee/grex/configs"
	"github.com/reusee/grex/modes"
	"github.com/reusee/grex/runs"
)

func testScope(t *testing.T) dscope.Scope {
	return dscope.New(
		modes.ForTest(t),
		new(Module),
		dscope.Provide(configs.NewLoader(nil, "")),
	)
}

func postRun(t *testing.T, url string, req *runs.Request) *runs.Response {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	httpResp, err := http.Post(url+"/run", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer httpResp.Body.Close()
	var resp runs.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return &resp
}

func TestRunEndpoint(t *testing.T) {
	testScope(t).Call(func(
		handler Handler,
	) {
		srv := httptest.NewServer(handler)
		defer srv.Close()

		resp := postRun(t, srv.URL, &runs.Request{
			Code: `@tracer('a', 'b')
def test(a, b, c):
	a = a * c
	b = b * c
	c = c * c
	return a + b * c

test(7, 9, 11)
`,
			Version: configs.ServerVersion,
		})
		if resp.Errors != nil {
			t.Fatalf("got %+v", resp.Errors)
		}
		if len(resp.Info.Result) != 10 {
			t.Fatalf("got %d frames", len(resp.Info.Result))
		}
	})
}

func TestRunEndpointVersionGate(t *testing.T) {
	testScope(t).Call(func(
		handler Handler,
	) {
		srv := httptest.NewServer(handler)
		defer srv.Close()

		resp := postRun(t, srv.URL, &runs.Request{
			Code:    `x = 1`,
			Version: "0.0.0",
		})
		if resp.Errors == nil || resp.Errors.Kind != runs.KindVersionMismatch {
			t.Fatalf("got %+v", resp.Errors)
		}
	})
}

func TestRunEndpointBadBody(t *testing.T) {
	testScope(t).Call(func(
		handler Handler,
	) {
		srv := httptest.NewServer(handler)
		defer srv.Close()

		httpResp, err := http.Post(srv.URL+"/run", "application/json",
			strings.NewReader("{not json"))
		if err != nil {
			t.Fatal(err)
		}
		defer httpResp.Body.Close()
		var resp runs.Response
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Errors == nil || resp.Errors.Kind != runs.KindProtocolError {
			t.Fatalf("got %+v", resp.Errors)
		}
	})
}

func TestRunEndpointMethod(t *testing.T) {
	testScope(t).Call(func(
		handler Handler,
	) {
		srv := httptest.NewServer(handler)
		defer srv.Close()

		httpResp, err := http.Get(srv.URL + "/run")
		if err != nil {
			t.Fatal(err)
		}
		httpResp.Body.Close()
		if httpResp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("got %d", httpResp.StatusCode)
		}
	})
}

func TestEnvEndpoint(t *testing.T) {
	testScope(t).Call(func(
		handler Handler,
	) {
		srv := httptest.NewServer(handler)
		defer srv.Close()

		httpResp, err := http.Get(srv.URL + "/env")
		if err != nil {
			t.Fatal(err)
		}
		defer httpResp.Body.Close()
		var env map[string]any
		if err := json.NewDecoder(httpResp.Body).Decode(&env); err != nil {
			t.Fatal(err)
		}
		if env["version"] != configs.ServerVersion {
			t.Fatalf("got %v", env["version"])
		}
		if env["float_precision"] != float64(4) {
			t.Fatalf("got %v", env["float_precision"])
		}
	})
}

func TestPreflight(t *testing.T) {
	testScope(t).Call(func(
		handler Handler,
	) {
		srv := httptest.NewServer(handler)
		defer srv.Close()

		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/run", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Origin", "http://localhost:3000")
		httpResp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		httpResp.Body.Close()
		if httpResp.StatusCode != http.StatusNoContent {
			t.Fatalf("got %d", httpResp.StatusCode)
		}
		if got := httpResp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Fatalf("got %q", got)
		}
	})
}

func TestIsAllowedOrigin(t *testing.T) {
	testScope(t).Fork(
		func() Origins {
			return nil
		},
	).Call(func(
		isAllowed IsAllowedOrigin,
	) {
		if !isAllowed("http://localhost:3000") {
			t.Fatal()
		}
		if !isAllowed("http://127.0.0.1:8080") {
			t.Fatal()
		}
		if isAllowed("https://example.com") {
			t.Fatal()
		}
		if isAllowed("") {
			t.Fatal()
		}
	})

	testScope(t).Fork(
		func() Origins {
			return Origins{"https://app.example.com"}
		},
	).Call(func(
		isAllowed IsAllowedOrigin,
	) {
		if !isAllowed("https://app.example.com") {
			t.Fatal()
		}
		if isAllowed("http://localhost:3000") {
			t.Fatal()
		}
	})
}

func TestLocalExchange(t *testing.T) {
	testScope(t).Call(func(
		controller *runs.Controller,
	) {
		req, err := json.Marshal(&runs.Request{
			Code:    `x = 1`,
			Version: configs.ServerVersion,
		})
		if err != nil {
			t.Fatal(err)
		}
		out := new(bytes.Buffer)
		errOut := new(bytes.Buffer)
		resp, err := LocalExchange(
			context.Background(),
			controller,
			bytes.NewReader(req),
			out,
			errOut,
		)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Errors != nil {
			t.Fatalf("got %+v", resp.Errors)
		}
		var decoded runs.Response
		if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded.Info == nil {
			t.Fatal("response document must carry info")
		}
		if errOut.Len() != 0 {
			t.Fatalf("stderr = %q", errOut.String())
		}
	})
}

func TestLocalExchangeBadInput(t *testing.T) {
	testScope(t).Call(func(
		controller *runs.Controller,
	) {
		out := new(bytes.Buffer)
		errOut := new(bytes.Buffer)
		resp, err := LocalExchange(
			context.Background(),
			controller,
			strings.NewReader("nope"),
			out,
			errOut,
		)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Errors == nil || resp.Errors.Kind != runs.KindProtocolError {
			t.Fatalf("got %+v", resp.Errors)
		}
		if errOut.Len() == 0 {
			t.Fatal("diagnostics must go to stderr")
		}
	})
}
