// Package app wires the application together: configuration, logging,
// Genkit, session storage, tool clients, and the advisor engine.
package app

import (
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropsage/cropsage/internal/advisor"
	"github.com/cropsage/cropsage/internal/config"
	"github.com/cropsage/cropsage/internal/log"
	"github.com/cropsage/cropsage/internal/session"
)

// App is the application container. Every transport (CLI chat, HTTP server,
// session commands) runs off one App.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	DBPool *pgxpool.Pool // nil when the file store backend is active

	Store  session.Store
	Locker *session.Locker
	Engine *advisor.Engine
}

// Close releases held resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Debug("database pool closed")
	}
	return nil
}
