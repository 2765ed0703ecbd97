package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/offis-rit/workq/internal/queue"
)

type AppUser struct {
	UserID      int32
	Role        string
	Permissions []string
}

// App carries the per-request dependencies every route handler needs:
// the queue engine, the raw pool, the JWKS keyset for
// bearer auth, and the master API key bypass.
type App struct {
	DBConn         *pgxpool.Pool
	Engine         *queue.Engine
	Key            *keyfunc.Keyfunc
	MasterAPIKey   string
	MasterUserID   int32
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	engine *queue.Engine,
	key *keyfunc.Keyfunc,
	masterAPIKey string,
	masterUserID int32,
	masterUserRole string,
) echo.MiddlewareFunc {
	app := &App{
		DBConn:         db,
		Engine:         engine,
		Key:            key,
		MasterAPIKey:   masterAPIKey,
		MasterUserID:   masterUserID,
		MasterUserRole: masterUserRole,
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
