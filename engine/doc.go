// Package engine translates client queries and mutations into SQL and runs
// them on a dialect.Driver.
//
// A generated client embeds a *Schema literal describing its models and
// calls the engine with untyped inputs:
//
//	recs, err := e.FindMany(ctx, "User", &engine.Query{
//		Where:   engine.NewStringField[User]("email").HasSuffix("@example.com").Expr(),
//		OrderBy: []engine.Order{{Field: "createdAt", Desc: true}},
//		Take:    quarry.Ptr(10),
//		Include: map[string]*engine.Query{"posts": nil},
//	})
//
// Relations listed in Include are loaded with one query per relation and
// level. Nested writes and Delete run in a transaction unless the engine
// is already bound to one.
//
// WithPolicy checks every public operation before it reaches the database:
//
//	e, err := engine.New(drv, schema, engine.WithPolicy(privacy.Models{
//		"Post": {Mutation: privacy.Rules{privacy.DenyIfNoViewer()}},
//	}))
package engine
