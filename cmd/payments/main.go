package main

import (
	"github.com/annpale/payments/internal/clock"
	"github.com/annpale/payments/internal/config"
	"github.com/annpale/payments/internal/migration"
	"github.com/annpale/payments/internal/observability"
	"github.com/annpale/payments/internal/server"
	"github.com/annpale/payments/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		server.Module,
		migration.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
