package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/netgen"
	"github.com/meikuraledutech/netgen/memstore"
	"github.com/meikuraledutech/netgen/operator"
	"github.com/meikuraledutech/netgen/postgres"
	"github.com/meikuraledutech/netgen/translate"
)

func main() {
	ctx := context.Background()

	// Wire up postgres when configured, otherwise keep everything in memory.
	var store netgen.Store = memstore.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Bulk insert using refs ────────────────────────────────────────
	model := &netgen.DAG{
		ID: "diamond",
		Nodes: []netgen.Node{
			{Ref: "in", Type: "Input"},
			{Ref: "left", Type: "Conv2D", Args: []netgen.Arg{
				{Key: "in_channels", Value: "3"},
				{Key: "out_channels", Value: "16"},
				{Key: "kernel_size", Value: "3"},
				{Key: "stride", Value: "1"},
				{Key: "padding", Value: "1"},
			}},
			{Ref: "right", Type: "MaxPooling2D", Args: []netgen.Arg{{Key: "kernel_size", Value: "2"}}},
			{Ref: "cat", Type: "Concatenation"},
		},
		Edges: []netgen.Edge{
			{FromNodeRef: "in", ToNodeRef: "left"},
			{FromNodeRef: "in", ToNodeRef: "right"},
			{FromNodeRef: "left", ToNodeRef: "cat"},
			{FromNodeRef: "right", ToNodeRef: "cat"},
		},
	}

	created, err := store.CreateDAG(ctx, model)
	if err != nil {
		log.Fatalf("create dag: %v", err)
	}
	fmt.Println("dag created (bulk with refs)")
	printJSON(created)

	// ── Granular: hang a ReLU off the concatenation ───────────────────
	reluID, err := store.AddNode(ctx, "diamond", &netgen.Node{Type: "ReLU"})
	if err != nil {
		log.Fatalf("add node: %v", err)
	}
	catID := created.Nodes[3].ID
	if _, err := store.AddEdge(ctx, "diamond", &netgen.Edge{FromNodeID: catID, ToNodeID: reluID}); err != nil {
		log.Fatalf("add edge: %v", err)
	}
	fmt.Printf("\nadded node: %s\n", reluID)

	// ── Retrieve and translate ────────────────────────────────────────
	stored, err := store.GetDAG(ctx, "diamond")
	if err != nil {
		log.Fatalf("get dag: %v", err)
	}
	program, err := translate.FromDAG(ctx, operator.Builtin(), stored)
	if err != nil {
		log.Fatalf("translate: %v", err)
	}
	src, err := translate.Source(program, "DiamondNet")
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	fmt.Println("\ngenerated source:")
	fmt.Print(string(src))

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteDAG(ctx, "diamond"); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\ndag deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
