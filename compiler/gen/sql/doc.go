// Package sql generates the Go client of a compiled schema.
//
// The generated package is built with jennifer and contains, for every
// model, the record struct with its loaded relations, the typed filters,
// the query and write inputs and a model client whose operations run on
// the runtime engine:
//
//	{output}/
//	├── client.go          # Client, options, Open, transactions
//	├── runtime.go         # engine.Schema literal
//	├── enums.go           # enum types
//	├── internal/schema.go # schema snapshot (schema/snapshot feature)
//	├── {model}.go          # record, relations and model client
//	├── {model}_query.go    # filters, fields, order, unique and query inputs
//	└── {model}_mutation.go # create and update inputs
//
// Usage:
//
//	g, err := gen.NewGraph(cfg, s)
//	if err != nil {
//		return err
//	}
//	err = sql.Generate(g)
package sql
