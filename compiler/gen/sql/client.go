package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/quarry/compiler/gen"
)

// genClient generates client.go: the Client, its options and the
// transaction support.
func genClient(g *gen.Graph, f *jen.File) *jen.File {
	genClientStruct(g, f)
	genOptions(g, f)
	genNewClient(g, f)
	genOpen(g, f)
	genTx(f)
	if g.FeatureEnabled(gen.FeatureExecQuery.Name) {
		genExecQuery(f)
	}
	f.Comment("Ptr returns a pointer to v, for optional and update inputs.")
	f.Func().Id("Ptr").Types(jen.Id("T").Any()).Params(jen.Id("v").Id("T")).Op("*").Id("T").Block(
		jen.Return(jen.Qual(quarryPkg, "Ptr").Call(jen.Id("v"))),
	)
	genCombinators(f)
	f.Func().Id("enumPtr").Types(jen.Id("E").Op("~").String()).Params(jen.Id("v").Op("*").String()).Op("*").Id("E").Block(
		jen.If(jen.Id("v").Op("==").Nil()).Block(jen.Return(jen.Nil())),
		jen.Id("e").Op(":=").Id("E").Call(jen.Op("*").Id("v")),
		jen.Return(jen.Op("&").Id("e")),
	)
	return f
}

func genClientStruct(g *gen.Graph, f *jen.File) {
	f.Comment("Client is the client that holds all model clients.")
	f.Type().Id("Client").StructFunc(func(group *jen.Group) {
		group.Id("engine").Op("*").Qual(enginePkg, "Engine")
		group.Id("opts").Op("*").Id("options")
		for _, t := range g.Nodes {
			group.Commentf("%s is the client for interacting with the %s model.", t.Name, t.Name)
			group.Id(t.Name).Op("*").Id(t.ClientName())
		}
	})

	f.Func().Id("newClient").Params(
		jen.Id("e").Op("*").Qual(enginePkg, "Engine"),
		jen.Id("opts").Op("*").Id("options"),
	).Op("*").Id("Client").BlockFunc(func(group *jen.Group) {
		group.Return(jen.Op("&").Id("Client").Values(jen.DictFunc(func(d jen.Dict) {
			d[jen.Id("engine")] = jen.Id("e")
			d[jen.Id("opts")] = jen.Id("opts")
			for _, t := range g.Nodes {
				d[jen.Id(t.Name)] = jen.Op("&").Id(t.ClientName()).Values(jen.Dict{
					jen.Id("engine"): jen.Id("e"),
				})
			}
		})))
	})

	f.Comment("Schema returns the runtime description of the models.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("Schema").Params().Op("*").Qual(enginePkg, "Schema").Block(
		jen.Return(jen.Id("c").Dot("engine").Dot("Schema").Call()),
	)

	f.Comment("Driver returns the underlying driver of the client.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("Driver").Params().Qual(dialectPkg, "Driver").Block(
		jen.Return(jen.Id("c").Dot("engine").Dot("Driver").Call()),
	)

	f.Comment("Engine returns the engine the client runs on, with the options of the client.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("Engine").Params().Op("*").Qual(enginePkg, "Engine").Block(
		jen.Return(jen.Id("c").Dot("engine")),
	)

	f.Comment("Close closes the database connection.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("Close").Params().Error().Block(
		jen.Return(jen.Id("c").Dot("engine").Dot("Close").Call()),
	)

	f.Comment("Debug returns a client that logs every statement it runs.")
	f.Comment("Transactional clients are returned unchanged.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("Debug").Params().Op("*").Id("Client").Block(
		jen.If(jen.Id("c").Dot("engine").Dot("InTx").Call().Op("||").Id("c").Dot("opts").Dot("debug")).Block(
			jen.Return(jen.Id("c")),
		),
		jen.Id("opts").Op(":=").Op("*").Id("c").Dot("opts"),
		jen.Id("opts").Dot("debug").Op("=").True(),
		jen.Id("drv").Op(":=").Qual(sqlPkg, "NewDebugDriver").Call(
			jen.Id("c").Dot("engine").Dot("Driver").Call(),
			jen.Id("opts").Dot("logger").Call(),
		),
		jen.List(jen.Id("e"), jen.Err()).Op(":=").Qual(enginePkg, "New").Call(
			jen.Id("drv"), jen.Id("c").Dot("engine").Dot("Schema").Call(), jen.Id("opts").Dot("engine").Call().Op("..."),
		),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Comment("The schema was initialized by the current engine."),
			jen.Panic(jen.Err()),
		),
		jen.Return(jen.Id("newClient").Call(jen.Id("e"), jen.Op("&").Id("opts"))),
	)
}

func genOptions(g *gen.Graph, f *jen.File) {
	f.Comment("options holds the configuration of the client.")
	f.Type().Id("options").Struct(
		jen.Id("log").Op("*").Qual("log/slog", "Logger"),
		jen.Id("cache").Qual(quarryPkg, "Cache"),
		jen.Id("cacheTTL").Qual("time", "Duration"),
		jen.Id("workers").Int(),
		jen.Id("policy").Qual(quarryPkg, "Policy"),
		jen.Id("debug").Bool(),
	)

	f.Func().Params(jen.Id("o").Op("*").Id("options")).Id("logger").Params().Op("*").Qual("log/slog", "Logger").Block(
		jen.If(jen.Id("o").Dot("log").Op("!=").Nil()).Block(jen.Return(jen.Id("o").Dot("log"))),
		jen.Return(jen.Qual("log/slog", "Default").Call()),
	)

	f.Func().Params(jen.Id("o").Op("*").Id("options")).Id("engine").Params().Index().Qual(enginePkg, "Option").Block(
		jen.Id("opts").Op(":=").Index().Qual(enginePkg, "Option").Values(
			jen.Qual(enginePkg, "WithLogger").Call(jen.Id("o").Dot("logger").Call()),
		),
		jen.If(jen.Id("o").Dot("cache").Op("!=").Nil()).Block(
			jen.Id("opts").Op("=").Append(jen.Id("opts"), jen.Qual(enginePkg, "WithCache").Call(jen.Id("o").Dot("cache"))),
		),
		jen.If(jen.Id("o").Dot("cacheTTL").Op(">").Lit(0)).Block(
			jen.Id("opts").Op("=").Append(jen.Id("opts"), jen.Qual(enginePkg, "WithCacheTTL").Call(jen.Id("o").Dot("cacheTTL"))),
		),
		jen.If(jen.Id("o").Dot("workers").Op(">").Lit(0)).Block(
			jen.Id("opts").Op("=").Append(jen.Id("opts"), jen.Qual(enginePkg, "WithIncludeWorkers").Call(jen.Id("o").Dot("workers"))),
		),
		jen.If(jen.Id("o").Dot("policy").Op("!=").Nil()).Block(
			jen.Id("opts").Op("=").Append(jen.Id("opts"), jen.Qual(enginePkg, "WithPolicy").Call(jen.Id("o").Dot("policy"))),
		),
		jen.Return(jen.Id("opts")),
	)

	f.Comment("Option configures the client.")
	f.Type().Id("Option").Func().Params(jen.Op("*").Id("options"))

	option := func(doc, name string, param jen.Code, body jen.Code) {
		f.Comment(doc)
		f.Func().Id(name).Params(param).Id("Option").Block(
			jen.Return(jen.Func().Params(jen.Id("o").Op("*").Id("options")).Block(body)),
		)
	}
	option("Log sets the logger of the client.", "Log",
		jen.Id("l").Op("*").Qual("log/slog", "Logger"),
		jen.Id("o").Dot("log").Op("=").Id("l"))
	if g.FeatureEnabled(gen.FeatureCache.Name) {
		option("Cache caches the results of reads. Writes invalidate the models they touch.", "Cache",
			jen.Id("c").Qual(quarryPkg, "Cache"),
			jen.Id("o").Dot("cache").Op("=").Id("c"))
		option("CacheTTL sets the lifetime of cached reads.", "CacheTTL",
			jen.Id("ttl").Qual("time", "Duration"),
			jen.Id("o").Dot("cacheTTL").Op("=").Id("ttl"))
	}
	option("IncludeWorkers bounds the number of relations loaded in parallel.", "IncludeWorkers",
		jen.Id("n").Int(),
		jen.Id("o").Dot("workers").Op("=").Id("n"))
	option("Policy checks every query and mutation of the client against p.", "Policy",
		jen.Id("p").Qual(quarryPkg, "Policy"),
		jen.Id("o").Dot("policy").Op("=").Id("p"))
}

func genNewClient(g *gen.Graph, f *jen.File) {
	f.Comment("NewClient returns a client that runs on the given driver.")
	f.Func().Id("NewClient").Params(
		jen.Id("drv").Qual(dialectPkg, "Driver"),
		jen.Id("opts").Op("...").Id("Option"),
	).Params(jen.Op("*").Id("Client"), jen.Error()).Block(
		jen.Id("o").Op(":=").Op("&").Id("options").Values(),
		jen.For(jen.List(jen.Id("_"), jen.Id("opt")).Op(":=").Range().Id("opts")).Block(
			jen.Id("opt").Call(jen.Id("o")),
		),
		jen.List(jen.Id("e"), jen.Err()).Op(":=").Qual(enginePkg, "New").Call(
			jen.Id("drv"), jen.Id("Schema"), jen.Id("o").Dot("engine").Call().Op("..."),
		),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Id("newClient").Call(jen.Id("e"), jen.Id("o")), jen.Nil()),
	)
}

func genOpen(g *gen.Graph, f *jen.File) {
	var env, url string
	if ds := g.Datasource; ds != nil {
		env, url = ds.URL.Env, ds.URL.Literal
	}
	f.Const().Defs(
		jen.Comment("datasourceEnv is the environment variable holding the datasource url."),
		jen.Id("datasourceEnv").Op("=").Lit(env),
		jen.Comment("datasourceURL is the literal datasource url of the schema."),
		jen.Id("datasourceURL").Op("=").Lit(url),
	)
	f.Comment("Open connects to the database at url and returns a client. An empty")
	f.Comment("url uses the datasource of the schema.")
	f.Func().Id("Open").Params(
		ctx(),
		jen.Id("url").String(),
		jen.Id("opts").Op("...").Id("Option"),
	).Params(jen.Op("*").Id("Client"), jen.Error()).Block(
		jen.If(jen.Id("url").Op("==").Lit("").Op("&&").Id("datasourceEnv").Op("!=").Lit("")).Block(
			jen.Id("url").Op("=").Qual("os", "Getenv").Call(jen.Id("datasourceEnv")),
		),
		jen.If(jen.Id("url").Op("==").Lit("")).Block(
			jen.Id("url").Op("=").Id("datasourceURL"),
		),
		jen.If(jen.Id("url").Op("==").Lit("")).Block(
			jen.Return(jen.Nil(), jen.Qual("fmt", "Errorf").Call(jen.Lit("open: missing datasource url, set %s"), jen.Id("datasourceEnv"))),
		),
		jen.List(jen.Id("drv"), jen.Err()).Op(":=").Qual(dsnPkg, "Open").Call(jen.Id("ctx"), jen.Id("url")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.List(jen.Id("c"), jen.Err()).Op(":=").Id("NewClient").Call(jen.Id("drv"), jen.Id("opts").Op("...")),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Id("_").Op("=").Id("drv").Dot("Close").Call(),
			jen.Return(jen.Nil(), jen.Err()),
		),
		jen.Return(jen.Id("c"), jen.Nil()),
	)
}

func genTx(f *jen.File) {
	f.Comment("Tx is a transactional client.")
	f.Type().Id("Tx").Struct(
		jen.Op("*").Id("Client"),
		jen.Id("tx").Op("*").Qual(enginePkg, "Tx"),
	)

	f.Comment("Tx starts a transaction. The returned client runs every operation in it.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("Tx").Params(ctx()).Params(jen.Op("*").Id("Tx"), jen.Error()).Block(
		jen.List(jen.Id("tx"), jen.Err()).Op(":=").Id("c").Dot("engine").Dot("Tx").Call(jen.Id("ctx")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Op("&").Id("Tx").Values(jen.Dict{
			jen.Id("Client"): jen.Id("newClient").Call(jen.Id("tx").Dot("Engine"), jen.Id("c").Dot("opts")),
			jen.Id("tx"):     jen.Id("tx"),
		}), jen.Nil()),
	)

	f.Comment("Commit commits the transaction.")
	f.Func().Params(jen.Id("tx").Op("*").Id("Tx")).Id("Commit").Params(ctx()).Error().Block(
		jen.Return(jen.Id("tx").Dot("tx").Dot("Commit").Call(jen.Id("ctx"))),
	)

	f.Comment("Rollback rolls back the transaction.")
	f.Func().Params(jen.Id("tx").Op("*").Id("Tx")).Id("Rollback").Params().Error().Block(
		jen.Return(jen.Id("tx").Dot("tx").Dot("Rollback").Call()),
	)

	f.Comment("WithTx runs fn in a transaction. The transaction is rolled back when fn")
	f.Comment("returns an error or panics, and committed otherwise.")
	f.Func().Id("WithTx").Params(
		ctx(),
		jen.Id("c").Op("*").Id("Client"),
		jen.Id("fn").Func().Params(jen.Op("*").Id("Tx")).Error(),
	).Params(jen.Err().Error()).Block(
		jen.List(jen.Id("tx"), jen.Err()).Op(":=").Id("c").Dot("Tx").Call(jen.Id("ctx")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.Defer().Func().Params().Block(
			jen.If(jen.Id("v").Op(":=").Recover(), jen.Id("v").Op("!=").Nil()).Block(
				jen.Id("_").Op("=").Id("tx").Dot("Rollback").Call(),
				jen.Panic(jen.Id("v")),
			),
		).Call(),
		jen.If(jen.Err().Op(":=").Id("fn").Call(jen.Id("tx")), jen.Err().Op("!=").Nil()).Block(
			jen.If(jen.Id("rerr").Op(":=").Id("tx").Dot("Rollback").Call(), jen.Id("rerr").Op("!=").Nil()).Block(
				jen.Return(jen.Qual("fmt", "Errorf").Call(jen.Lit("%w: rolling back transaction: %v"), jen.Err(), jen.Id("rerr"))),
			),
			jen.Return(jen.Err()),
		),
		jen.Return(jen.Id("tx").Dot("Commit").Call(jen.Id("ctx"))),
	)
}

func genExecQuery(f *jen.File) {
	f.Comment("ExecRaw runs a raw statement and returns the number of affected rows.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("ExecRaw").Params(
		ctx(), jen.Id("query").String(), jen.Id("args").Op("...").Any(),
	).Params(jen.Int64(), jen.Error()).Block(
		jen.Return(jen.Id("c").Dot("engine").Dot("ExecRaw").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args").Op("..."))),
	)
	f.Comment("QueryRaw runs a raw query and returns its rows keyed by column name.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("QueryRaw").Params(
		ctx(), jen.Id("query").String(), jen.Id("args").Op("...").Any(),
	).Params(jen.Index().Map(jen.String()).Any(), jen.Error()).Block(
		jen.Return(jen.Id("c").Dot("engine").Dot("QueryRaw").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args").Op("..."))),
	)
}

// genCombinators generates And, Or and Not over the filters of any model.
func genCombinators(f *jen.File) {
	pred := func() *jen.Statement { return jen.Qual(enginePkg, "P").Types(jen.Id("M")) }
	f.Comment("And returns a filter that matches when all filters match.")
	f.Func().Id("And").Types(jen.Id("M").Any()).Params(jen.Id("ps").Op("...").Add(pred())).Add(pred()).Block(
		jen.Return(jen.Qual(enginePkg, "And").Call(jen.Id("ps").Op("..."))),
	)
	f.Comment("Or returns a filter that matches when any filter matches.")
	f.Func().Id("Or").Types(jen.Id("M").Any()).Params(jen.Id("ps").Op("...").Add(pred())).Add(pred()).Block(
		jen.Return(jen.Qual(enginePkg, "Or").Call(jen.Id("ps").Op("..."))),
	)
	f.Comment("Not negates a filter.")
	f.Func().Id("Not").Types(jen.Id("M").Any()).Params(jen.Id("p").Add(pred())).Add(pred()).Block(
		jen.Return(jen.Qual(enginePkg, "Not").Call(jen.Id("p"))),
	)
}
