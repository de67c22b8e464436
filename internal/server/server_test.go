package server

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/cyberlab/internal/config"
	"github.com/ppiankov/cyberlab/internal/labs"
)

// testServer spins up an in-process gRPC server on a random port and returns a connection.
func testServer(t *testing.T) *grpc.ClientConn {
	t.Helper()

	svc := labs.NewWithConfig(config.Default(), nil, labs.Options{})
	srv := New(svc, 0, nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go srv.ServeOn(lis)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		srv.GracefulStop()
		t.Fatalf("dial: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		srv.GracefulStop()
	})
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, req map[string]any) (map[string]any, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(context.Background(), FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func TestListLabs(t *testing.T) {
	conn := testServer(t)

	resp, err := invoke(t, conn, MethodListLabs, nil)
	if err != nil {
		t.Fatalf("ListLabs: %v", err)
	}
	list, ok := resp["labs"].([]any)
	if !ok || len(list) != 9 {
		t.Fatalf("labs = %v", resp["labs"])
	}
	first := list[0].(map[string]any)
	if first["id"] != "xss" || first["default_mode"] != "vulnerable" {
		t.Errorf("first lab = %v", first)
	}
}

func TestListPayloads(t *testing.T) {
	conn := testServer(t)

	resp, err := invoke(t, conn, MethodListPayloads, map[string]any{"lab": "JWT"})
	if err != nil {
		t.Fatalf("ListPayloads: %v", err)
	}
	list, ok := resp["payloads"].([]any)
	if !ok || len(list) == 0 {
		t.Fatalf("payloads = %v", resp)
	}
	if _, ok := list[0].(map[string]any)["payload"]; !ok {
		t.Errorf("payload entry = %v", list[0])
	}
}

func TestListPayloadsUnknownLab(t *testing.T) {
	conn := testServer(t)

	_, err := invoke(t, conn, MethodListPayloads, map[string]any{"lab": "ldap"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument (%v)", status.Code(err), err)
	}
}

func TestClassifyCORS(t *testing.T) {
	conn := testServer(t)

	resp, err := invoke(t, conn, MethodClassify, map[string]any{
		"category":    "cors",
		"mode":        "unsafe",
		"input":       "https://evil.example",
		"credentials": true,
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if resp["kind"] != "credential_theft" || resp["severity"] != "critical" {
		t.Errorf("result = %v", resp)
	}
	data := resp["data"].(map[string]any)
	cors := data["cors"].(map[string]any)
	if _, ok := cors["leaked_account"]; !ok {
		t.Errorf("cors exchange missing leaked account: %v", cors)
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	conn := testServer(t)

	resp, err := invoke(t, conn, MethodClassify, map[string]any{"category": "xss"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if resp["kind"] != "no_input" {
		t.Errorf("kind = %v", resp["kind"])
	}
}

func TestClassifyRejectsBadRequests(t *testing.T) {
	conn := testServer(t)

	cases := []map[string]any{
		{"category": "ldap", "input": "x"},
		{"category": "sqli", "mode": "wildcard", "input": "x"},
	}
	for _, req := range cases {
		_, err := invoke(t, conn, MethodClassify, req)
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("%v: code = %v, want InvalidArgument", req, status.Code(err))
		}
	}
}

func TestStructRoundTrip(t *testing.T) {
	type msg struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	s, err := ToStruct(msg{Name: "a", Count: 3})
	if err != nil {
		t.Fatal(err)
	}
	var got msg
	if err := FromStruct(s, &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "a" || got.Count != 3 {
		t.Errorf("got %+v", got)
	}
	if err := FromStruct(nil, &got); err != nil {
		t.Errorf("nil struct: %v", err)
	}
}
