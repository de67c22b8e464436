package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/cyberlab/internal/labs"
	"github.com/ppiankov/cyberlab/internal/model"
)

// --- Input/Output types ---

// LabsInput takes no parameters.
type LabsInput struct{}

// LabsOutput lists every lab.
type LabsOutput struct {
	Labs []labs.Info `json:"labs"`
}

// PayloadsInput defines parameters for the cyberlab_payloads tool.
type PayloadsInput struct {
	Lab string `json:"lab" jsonschema:"lab id (xss/sqli/cors/clickjacking/jwt/upload/redirect/cmdi/scanner)"`
}

// PayloadsOutput lists a lab's example payloads.
type PayloadsOutput struct {
	Lab      string          `json:"lab"`
	Payloads []model.Payload `json:"payloads"`
}

// ClassifyInput defines parameters for the cyberlab_classify tool.
type ClassifyInput struct {
	Lab         string `json:"lab" jsonschema:"lab id"`
	Mode        string `json:"mode,omitempty" jsonschema:"lab mode, omit for the lab default"`
	Input       string `json:"input,omitempty" jsonschema:"payload text: markup, SQL fragment, origin, token, URL or host"`
	Credentials bool   `json:"credentials,omitempty" jsonschema:"CORS lab only: send cookies with the request"`
	FileName    string `json:"file_name,omitempty" jsonschema:"upload lab only: name of the selected file"`
	FileSize    int64  `json:"file_size,omitempty" jsonschema:"upload lab only: file size in bytes"`
	FileMIME    string `json:"file_mime,omitempty" jsonschema:"upload lab only: declared content type"`
	Latency     bool   `json:"latency,omitempty" jsonschema:"run through a lab session with the simulated response delay"`
}

// ClassifyOutput is the simulated outcome.
type ClassifyOutput struct {
	Lab      string      `json:"lab"`
	Mode     string      `json:"mode"`
	Kind     string      `json:"kind"`
	Severity string      `json:"severity"`
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	Data     *model.Data `json:"data,omitempty"`
}

// TokenInput defines parameters for the cyberlab_jwt_token tool.
type TokenInput struct {
	Claims map[string]any `json:"claims,omitempty" jsonschema:"claims to sign, or claim changes when token is set"`
	Token  string         `json:"token,omitempty" jsonschema:"existing token to tamper with; its signature is kept"`
}

// TokenOutput carries the resulting token.
type TokenOutput struct {
	Token    string `json:"token"`
	Tampered bool   `json:"tampered"`
}

// --- Handlers ---

func (s *Server) handleLabs(ctx context.Context, req *mcpsdk.CallToolRequest, input LabsInput) (*mcpsdk.CallToolResult, LabsOutput, error) {
	return nil, LabsOutput{Labs: s.svc.Labs()}, nil
}

func (s *Server) handlePayloads(ctx context.Context, req *mcpsdk.CallToolRequest, input PayloadsInput) (*mcpsdk.CallToolResult, PayloadsOutput, error) {
	payloads, err := s.svc.Payloads(input.Lab)
	if err != nil {
		return nil, PayloadsOutput{}, err
	}
	return nil, PayloadsOutput{Lab: input.Lab, Payloads: payloads}, nil
}

func (s *Server) handleClassify(ctx context.Context, req *mcpsdk.CallToolRequest, input ClassifyInput) (*mcpsdk.CallToolResult, ClassifyOutput, error) {
	cat, err := model.ParseCategory(input.Lab)
	if err != nil {
		return nil, ClassifyOutput{}, err
	}
	mode, err := model.ValidateMode(cat, model.Mode(input.Mode))
	if err != nil {
		return nil, ClassifyOutput{}, err
	}

	sub := model.Submission{
		Category:    cat,
		Mode:        mode,
		Input:       input.Input,
		Credentials: input.Credentials,
	}
	if input.FileName != "" {
		sub.File = &model.FileInfo{Name: input.FileName, Size: input.FileSize, MIME: input.FileMIME}
	}

	var res model.Result
	if input.Latency {
		res, err = s.submitInSession(ctx, sub)
	} else {
		res, err = s.svc.Classify(ctx, labs.SourceMCP, "", sub)
	}
	if err != nil {
		return nil, ClassifyOutput{}, err
	}

	return nil, ClassifyOutput{
		Lab:      string(cat),
		Mode:     string(mode),
		Kind:     string(res.Kind),
		Severity: string(res.Severity),
		Success:  res.Success(),
		Message:  res.Message,
		Data:     res.Data,
	}, nil
}

// submitInSession runs sub through a throwaway session so the lab's
// configured delay applies.
func (s *Server) submitInSession(ctx context.Context, sub model.Submission) (model.Result, error) {
	sessions := s.svc.Sessions()
	sess, err := sessions.Create(sub.Category, sub.Mode)
	if err != nil {
		return model.Result{}, err
	}
	defer sessions.Delete(sess.ID())

	sess.SetInput(sub.Input)
	sess.SetCredentials(sub.Credentials)
	sess.SetFile(sub.File)

	s.log.Debug("session submit", zap.String("session", sess.ID()), zap.String("lab", string(sub.Category)))
	return s.svc.Submit(ctx, sess.ID())
}

func (s *Server) handleToken(ctx context.Context, req *mcpsdk.CallToolRequest, input TokenInput) (*mcpsdk.CallToolResult, TokenOutput, error) {
	if input.Token == "" {
		token, err := s.svc.IssueToken(input.Claims)
		if err != nil {
			return nil, TokenOutput{}, fmt.Errorf("issue token: %w", err)
		}
		return nil, TokenOutput{Token: token}, nil
	}

	if len(input.Claims) == 0 {
		return nil, TokenOutput{}, errors.New("claims are required when tampering with a token")
	}
	token, err := s.svc.TamperToken(input.Token, input.Claims)
	if err != nil {
		return nil, TokenOutput{}, fmt.Errorf("tamper token: %w", err)
	}
	return nil, TokenOutput{Token: token, Tampered: true}, nil
}
