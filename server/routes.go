package main

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/netgen"
	"github.com/meikuraledutech/netgen/diagram"
	"github.com/meikuraledutech/netgen/operator"
	"github.com/meikuraledutech/netgen/publish"
	"github.com/meikuraledutech/netgen/translate"
	"k8s.io/klog/v2"
)

// api serves stored diagrams and their generated model sources.
type api struct {
	store     netgen.Store
	registry  *operator.Registry
	publisher publish.Publisher // nil disables publishing
	className string
}

// newApp registers every route. pub may be nil, which disables publishing.
func newApp(store netgen.Store, reg *operator.Registry, pub publish.Publisher, className string) *fiber.App {
	a := &api{store: store, registry: reg, publisher: pub, className: className}
	app := fiber.New()

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", a.createSchema)
	app.Delete("/schema", a.dropSchema)

	// ── DAG (bulk) ────────────────────────────────────────────────────
	app.Post("/dag", a.createDAG)
	dags := app.Group("/dag")
	dags.Get("/:id", a.getDAG)
	dags.Delete("/:id", a.deleteDAG)
	dags.Post("/:id/diagram", a.importDiagram)
	dags.Get("/:id/source", a.dagSource)
	dags.Post("/:id/publish", a.publishDAG)

	// ── Nodes ─────────────────────────────────────────────────────────
	dags.Post("/:id/nodes", a.addNode)
	dags.Get("/:id/nodes", a.listNodes)
	app.Get("/nodes/:id", a.getNode)
	app.Put("/nodes/:id", a.updateNode)
	app.Delete("/nodes/:id", a.deleteNode)

	// ── Edges ─────────────────────────────────────────────────────────
	dags.Post("/:id/edges", a.addEdge)
	dags.Get("/:id/edges", a.listEdges)
	app.Get("/edges/:id", a.getEdge)
	app.Put("/edges/:id", a.updateEdge)
	app.Delete("/edges/:id", a.deleteEdge)

	// ── Translation ───────────────────────────────────────────────────
	app.Get("/operators", a.operators)
	app.Post("/translate", a.translateDAG)
	app.Post("/diagram/translate", a.translateDiagram)

	return app
}

// status maps the sentinel errors of the store, the graph and the registry to
// an HTTP status.
func status(err error) int {
	switch {
	case errors.Is(err, netgen.ErrNodeNotFound), errors.Is(err, netgen.ErrEdgeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, netgen.ErrDuplicateID):
		return fiber.StatusConflict
	case errors.Is(err, netgen.ErrCycleDetected),
		errors.Is(err, netgen.ErrGraphIntegrity),
		errors.Is(err, operator.ErrMissingArgument):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, netgen.ErrUnknownRef),
		errors.Is(err, operator.ErrUnknownOperator),
		errors.Is(err, diagram.ErrMalformed),
		errors.Is(err, publish.ErrInvalidID):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c fiber.Ctx, code int, err error) error {
	if code >= fiber.StatusInternalServerError {
		klog.FromContext(c.Context()).Error(err, "request failed", "method", c.Method(), "path", c.Path())
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func failWith(c fiber.Ctx, err error) error {
	return fail(c, status(err), err)
}

func badBody(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
}

func notFound(c fiber.Ctx, what string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": what + " not found"})
}

func (a *api) createSchema(c fiber.Ctx) error {
	if err := a.store.CreateSchema(c.Context()); err != nil {
		return failWith(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema created"})
}

func (a *api) dropSchema(c fiber.Ctx) error {
	if err := a.store.DropSchema(c.Context()); err != nil {
		return failWith(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema dropped"})
}

func (a *api) createDAG(c fiber.Ctx) error {
	var d netgen.DAG
	if err := c.Bind().JSON(&d); err != nil {
		return badBody(c)
	}
	return a.save(c, &d)
}

// importDiagram stores an editor export under the id in the path.
func (a *api) importDiagram(c fiber.Ctx) error {
	d, err := diagram.Parse(c.Body(), c.Params("id"))
	if err != nil {
		return failWith(c, err)
	}
	return a.save(c, d)
}

func (a *api) save(c fiber.Ctx, d *netgen.DAG) error {
	result, err := a.store.CreateDAG(c.Context(), d)
	if errors.Is(err, netgen.ErrNodeNotFound) {
		// An edge in the submitted document names a node that isn't in it.
		return fail(c, fiber.StatusBadRequest, err)
	}
	if err != nil {
		return failWith(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// loadDAG fetches the DAG named in the path. When it returns a nil DAG the
// response has already been written and the error is the handler's result.
func (a *api) loadDAG(c fiber.Ctx) (*netgen.DAG, error) {
	d, err := a.store.GetDAG(c.Context(), c.Params("id"))
	if err != nil {
		return nil, failWith(c, err)
	}
	if d == nil {
		return nil, notFound(c, "dag")
	}
	return d, nil
}

func (a *api) getDAG(c fiber.Ctx) error {
	d, err := a.loadDAG(c)
	if d == nil {
		return err
	}
	return c.JSON(d)
}

func (a *api) deleteDAG(c fiber.Ctx) error {
	if err := a.store.DeleteDAG(c.Context(), c.Params("id")); err != nil {
		return failWith(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *api) addNode(c fiber.Ctx) error {
	var node netgen.Node
	if err := c.Bind().JSON(&node); err != nil {
		return badBody(c)
	}
	id, err := a.store.AddNode(c.Context(), c.Params("id"), &node)
	if err != nil {
		return failWith(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (a *api) listNodes(c fiber.Ctx) error {
	nodes, err := a.store.ListNodes(c.Context(), c.Params("id"))
	if err != nil {
		return failWith(c, err)
	}
	return c.JSON(nodes)
}

func (a *api) getNode(c fiber.Ctx) error {
	n, err := a.store.GetNode(c.Context(), c.Params("id"))
	if err != nil {
		return failWith(c, err)
	}
	if n == nil {
		return notFound(c, "node")
	}
	return c.JSON(n)
}

func (a *api) updateNode(c fiber.Ctx) error {
	var node netgen.Node
	if err := c.Bind().JSON(&node); err != nil {
		return badBody(c)
	}
	node.ID = c.Params("id")
	if err := a.store.UpdateNode(c.Context(), &node); err != nil {
		return failWith(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *api) deleteNode(c fiber.Ctx) error {
	if err := a.store.DeleteNode(c.Context(), c.Params("id")); err != nil {
		return failWith(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *api) addEdge(c fiber.Ctx) error {
	var edge netgen.Edge
	if err := c.Bind().JSON(&edge); err != nil {
		return badBody(c)
	}
	id, err := a.store.AddEdge(c.Context(), c.Params("id"), &edge)
	if err != nil {
		return failWith(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (a *api) listEdges(c fiber.Ctx) error {
	edges, err := a.store.ListEdges(c.Context(), c.Params("id"))
	if err != nil {
		return failWith(c, err)
	}
	return c.JSON(edges)
}

func (a *api) getEdge(c fiber.Ctx) error {
	e, err := a.store.GetEdge(c.Context(), c.Params("id"))
	if err != nil {
		return failWith(c, err)
	}
	if e == nil {
		return notFound(c, "edge")
	}
	return c.JSON(e)
}

func (a *api) updateEdge(c fiber.Ctx) error {
	var edge netgen.Edge
	if err := c.Bind().JSON(&edge); err != nil {
		return badBody(c)
	}
	edge.ID = c.Params("id")
	if err := a.store.UpdateEdge(c.Context(), &edge); err != nil {
		return failWith(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *api) deleteEdge(c fiber.Ctx) error {
	if err := a.store.DeleteEdge(c.Context(), c.Params("id")); err != nil {
		return failWith(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *api) operators(c fiber.Ctx) error {
	return c.JSON(a.registry.Describe())
}

// translateDAG translates a DAG document from the body without storing it.
func (a *api) translateDAG(c fiber.Ctx) error {
	var d netgen.DAG
	if err := c.Bind().JSON(&d); err != nil {
		return badBody(c)
	}
	return a.sendSource(c, &d)
}

// translateDiagram translates an editor export from the body without storing it.
func (a *api) translateDiagram(c fiber.Ctx) error {
	d, err := diagram.Parse(c.Body(), c.Query("id", "diagram"))
	if err != nil {
		return failWith(c, err)
	}
	return a.sendSource(c, d)
}

func (a *api) dagSource(c fiber.Ctx) error {
	d, err := a.loadDAG(c)
	if d == nil {
		return err
	}
	return a.sendSource(c, d)
}

func (a *api) render(c fiber.Ctx, d *netgen.DAG) (*translate.Program, []byte, error) {
	p, err := translate.FromDAG(c.Context(), a.registry, d)
	if err != nil {
		return nil, nil, err
	}
	src, err := translate.Source(p, c.Query("class", a.className))
	if err != nil {
		return nil, nil, err
	}
	return p, src, nil
}

// sendSource translates d and replies with the model source, or with the
// fragments and the source as JSON when ?format=json.
func (a *api) sendSource(c fiber.Ctx, d *netgen.DAG) error {
	p, src, err := a.render(c, d)
	if err != nil {
		return failWith(c, err)
	}

	if c.Query("format") == "json" {
		return c.JSON(fiber.Map{
			"declarations": p.Declarations,
			"forward":      p.Forward(),
			"outputs":      p.Outputs,
			"source":       string(src),
		})
	}
	c.Set(fiber.HeaderContentType, "text/x-python; charset=utf-8")
	return c.Send(src)
}

func (a *api) publishDAG(c fiber.Ctx) error {
	if a.publisher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "publishing is not configured"})
	}
	d, err := a.loadDAG(c)
	if d == nil {
		return err
	}
	_, src, err := a.render(c, d)
	if err != nil {
		return failWith(c, err)
	}

	location, err := a.publisher.Publish(c.Context(), d.ID, src)
	if err != nil {
		code := status(err)
		if code == fiber.StatusInternalServerError {
			code = fiber.StatusBadGateway
		}
		return fail(c, code, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"location": location})
}
