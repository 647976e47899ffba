package shared

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// Engine is the wire-level contract every analysis engine plugin implements.
// The request/response types are plain structs so they survive the net/rpc
// gob round trip; the in-process Adapter interface in internal/engine wraps
// this contract with richer types and context-based cancellation.
type Engine interface {
	Describe() (EngineDescriptor, error)
	Prepare(args EnginePrepareRequest) (EngineExecutionSpec, error)
	Execute(spec EngineExecutionSpec) (EngineRawOutput, error)
	Parse(out EngineRawOutput) ([]EngineRawFinding, error)
}

// EngineDescriptor carries the adapter's declared metadata: its pinned tool
// version, its tool-native severity scale mapped onto the canonical one, and
// its rule-to-category table. The normalizer holds no per-tool knowledge.
type EngineDescriptor struct {
	Name              string
	Version           string
	SeverityMap       map[string]string
	RuleCategories    map[string]string
	DefaultConfidence float64
}

// EnginePrepareRequest describes the project snapshot and stage settings an
// engine needs to compute its sandbox invocation.
type EnginePrepareRequest struct {
	ProjectRoot     string
	SourceFiles     []string
	Framework       string
	CompilerVersion string
	Stage           string
	OutputDir       string
	Seed            int64
	TimeoutSeconds  int
	ExtraArgs       []string
}

// EngineExecutionSpec is the prepared sandbox invocation: command, working
// directory, resource quotas and network allowlist (deny-by-default).
type EngineExecutionSpec struct {
	Engine           string
	Command          []string
	WorkDir          string
	Env              []string
	OutputPath       string
	CPUSeconds       int
	MemoryMB         int
	WallClockSeconds int
	AllowHosts       []string
}

// EngineRawOutput is the opaque tool-native result of one execution.
type EngineRawOutput struct {
	Engine string
	Format string
	Path   string
	Data   []byte
}

// EngineRawFinding is one tool-native finding before normalization.
type EngineRawFinding struct {
	Engine      string
	RuleID      string
	Severity    string
	Title       string
	Description string
	FilePath    string
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	Confidence  float64
}

type EngineRPCClient struct{ client *rpc.Client }

// NewEngineRPCClient wraps an established rpc.Client in the engine contract.
func NewEngineRPCClient(c *rpc.Client) *EngineRPCClient {
	return &EngineRPCClient{client: c}
}

func (g *EngineRPCClient) Describe() (EngineDescriptor, error) {
	var resp EngineDescriptor
	err := g.client.Call("Plugin.Describe", new(interface{}), &resp)
	if err != nil {
		return resp, err
	}
	return resp, nil
}

func (g *EngineRPCClient) Prepare(args EnginePrepareRequest) (EngineExecutionSpec, error) {
	var resp EngineExecutionSpec
	err := g.client.Call("Plugin.Prepare", args, &resp)
	if err != nil {
		return resp, err
	}
	return resp, nil
}

func (g *EngineRPCClient) Execute(spec EngineExecutionSpec) (EngineRawOutput, error) {
	var resp EngineRawOutput
	err := g.client.Call("Plugin.Execute", spec, &resp)
	if err != nil {
		return resp, err
	}
	return resp, nil
}

func (g *EngineRPCClient) Parse(out EngineRawOutput) ([]EngineRawFinding, error) {
	var resp []EngineRawFinding
	err := g.client.Call("Plugin.Parse", out, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type EngineRPCServer struct {
	Impl Engine
}

func (s *EngineRPCServer) Describe(args interface{}, resp *EngineDescriptor) error {
	var err error
	*resp, err = s.Impl.Describe()
	return err
}

func (s *EngineRPCServer) Prepare(args EnginePrepareRequest, resp *EngineExecutionSpec) error {
	var err error
	*resp, err = s.Impl.Prepare(args)
	return err
}

func (s *EngineRPCServer) Execute(spec EngineExecutionSpec, resp *EngineRawOutput) error {
	var err error
	*resp, err = s.Impl.Execute(spec)
	return err
}

func (s *EngineRPCServer) Parse(out EngineRawOutput, resp *[]EngineRawFinding) error {
	var err error
	*resp, err = s.Impl.Parse(out)
	return err
}

type EnginePlugin struct {
	Impl Engine
}

func (p *EnginePlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &EngineRPCServer{Impl: p.Impl}, nil
}

func (EnginePlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &EngineRPCClient{client: c}, nil
}
