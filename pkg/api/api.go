// Package api implements the HTTP front end: a thin Fiber wrapper around
// the document driver, exposing evaluation as a JSON-in/JSON-out service
// the way the teacher's pkg/api exposes workflow execution.
package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/driver"
	"github.com/spiral-lang/spiral/pkg/environ"
	"github.com/spiral-lang/spiral/pkg/registry"
)

func jsonMarshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

// Server is the HTTP API server: one shared operator registry and defs
// table (populated by the stdlib loader at startup) behind every request.
type Server struct {
	app  *fiber.App
	ops  *registry.Registry
	defs *environ.DefTable
}

// New creates a Server wired to the given operator registry and defs
// table; both are typically built once at process startup (stdlib
// registration, then stdlibloader) and shared across every request.
func New(ops *registry.Registry, defs *environ.DefTable) *Server {
	srv := &Server{ops: ops, defs: defs}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	app.Get("/healthz", srv.healthz)
	app.Get("/v1/operators", srv.listOperators)
	app.Post("/v1/evaluate", srv.evaluate)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error { return s.app.Shutdown() }

// App returns the underlying Fiber app, useful for testing.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type operatorInfo struct {
	NS    string `json:"ns"`
	Name  string `json:"name"`
	Arity int    `json:"arity"`
	Pure  bool   `json:"pure"`
}

func (s *Server) listOperators(c *fiber.Ctx) error {
	ops := s.ops.List()
	out := make([]operatorInfo, len(ops))
	for i, op := range ops {
		out[i] = operatorInfo{NS: op.NS, Name: op.Name, Arity: op.Arity, Pure: op.Pure}
	}
	return c.JSON(fiber.Map{"operators": out})
}

type evaluateRequest struct {
	Document fiber.Map `json:"document"`
	MaxSteps int       `json:"maxSteps"`
	Trace    bool      `json:"trace"`
	Async    bool      `json:"async"`
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Document == nil {
		return badRequest(c, "document is required")
	}

	raw, err := jsonMarshal(req.Document)
	if err != nil {
		return badRequest(c, fmt.Sprintf("invalid document: %v", err))
	}
	doc, err := document.Decode(raw)
	if err != nil {
		return badRequest(c, fmt.Sprintf("invalid document: %v", err))
	}

	result, err := driver.Evaluate(doc, s.ops, s.defs, driver.Options{
		MaxSteps: req.MaxSteps,
		Trace:    req.Trace,
		Async:    req.Async,
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"result": result.Value})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(400).JSON(fiber.Map{"error": msg})
}
