package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-share/pkg/audit"
	auditapi "github.com/tendant/simple-share/pkg/audit/api"
	"github.com/tendant/simple-share/pkg/delegation"
	"github.com/tendant/simple-share/pkg/mapper"
	"github.com/tendant/simple-share/pkg/notification"
	"github.com/tendant/simple-share/pkg/ratelimit"
	"github.com/tendant/simple-share/pkg/sharing"
	shareapi "github.com/tendant/simple-share/pkg/sharing/api"
)

type ShareDbConfig struct {
	Host     string `env:"SHARE_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"SHARE_PG_PORT" env-default:"5432"`
	Database string `env:"SHARE_PG_DATABASE" env-default:"share_db"`
	User     string `env:"SHARE_PG_USER" env-default:"share"`
	Password string `env:"SHARE_PG_PASSWORD" env-default:"pwd"`
}

func (d ShareDbConfig) toDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

type JwtConfig struct {
	JwtSecret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:""`
	Password string `env:"EMAIL_PASSWORD" env-default:""`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

type ShareConfig struct {
	BaseUrl string `env:"SHARE_BASE_URL" env-default:"http://localhost:4000"`

	PublicRateCapacity int     `env:"SHARE_PUBLIC_RATE_CAPACITY" env-default:"30"`
	PublicRatePerSec   float64 `env:"SHARE_PUBLIC_RATE_PER_SEC" env-default:"0.5"`
}

type Config struct {
	ShareDbConfig ShareDbConfig
	AppConfig     app.AppConfig
	JwtConfig     JwtConfig
	EmailConfig   EmailConfig
	ShareConfig   ShareConfig
}

func main() {

	config := Config{}
	cleanenv.ReadEnv(&config)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	dbConfig := config.ShareDbConfig.toDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	notificationManager, err := notification.NewNotificationManagerWithOptions(
		notification.WithSMTP(notification.SMTPConfig{
			Host:     config.EmailConfig.Host,
			Port:     config.EmailConfig.Port,
			Username: config.EmailConfig.Username,
			Password: config.EmailConfig.Password,
			From:     config.EmailConfig.From,
			TLS:      config.EmailConfig.TLS,
		}),
		notification.WithInApp(notification.NewInAppNotifier()),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed creating notification manager", "err", err)
		os.Exit(-1)
	}

	userMapper := mapper.NewPostgresUserMapper(pool)
	sessionRepo := sharing.NewPostgresSessionRepository(pool)
	resourceChecker := sharing.NewPostgresResourceChecker(pool)

	sharingService := sharing.NewSharingService(
		sessionRepo,
		resourceChecker,
		userMapper,
		sharing.WithNotificationManager(notificationManager),
		sharing.WithBaseUrl(config.ShareConfig.BaseUrl),
	)

	resolver := delegation.NewResolver(sharingService, userMapper)

	recorder := audit.NewRecorder(audit.NewPostgresChangeRepository(pool))
	auditMiddleware := audit.NewMiddleware(recorder, audit.WithSnapshotFunc(resourceSnapshot(pool)))

	shareHandler := shareapi.NewShareHandler(sharingService)
	auditHandler := auditapi.NewAuditHandler(recorder)

	tokenAuth := jwtauth.New("HS256", []byte(config.JwtConfig.JwtSecret), nil)

	// Unauthenticated invitee endpoints, rate limited per client IP
	publicLimiter := ratelimit.NewMiddleware(&ratelimit.Config{
		Capacity:       config.ShareConfig.PublicRateCapacity,
		RefillRate:     config.ShareConfig.PublicRatePerSec,
		BucketTTL:      ratelimit.DefaultConfig().BucketTTL,
		IncludeHeaders: true,
	})
	server.R.Group(func(r chi.Router) {
		r.Use(publicLimiter.Handler)
		r.Mount("/share", shareapi.InviteeHandler(shareHandler))
	})

	// Authenticated endpoints
	server.R.Group(func(r chi.Router) {
		r.Use(delegation.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Use(delegation.PrincipalMiddleware)
		r.Use(delegation.Middleware(resolver))

		r.Mount("/sharing", shareapi.Handler(shareHandler))
		r.Mount("/audit", auditapi.Handler(auditHandler))

		// Resource routes run as the effective principal: an editor
		// delegate acts as the owner here, and every delegated mutation
		// lands in the change history.
		r.Group(func(r chi.Router) {
			r.Use(auditMiddleware.RecordChanges)
			r.Get("/resources", listResources(pool))
			r.Post("/resources", createResource(pool))
			r.Put("/resources/{resource_id}", updateResource(pool))
			r.Delete("/resources/{resource_id}", deleteResource(pool, sharingService))
		})
	})

	server.Run()
}

// Resource represents an owned item that can be shared
type Resource struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`
}

func listResources(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		effective, _ := delegation.EffectiveFromContext(r.Context())

		// The effective principal is the owner here, whether directly or
		// through an editor delegation
		rows, err := pool.Query(r.Context(), `SELECT id, owner_id, name FROM resource WHERE owner_id = $1 ORDER BY created_at`, effective.UserID)
		if err != nil {
			slog.Error("Failed to list resources", "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		var resources []Resource
		for rows.Next() {
			var res Resource
			if err := rows.Scan(&res.ID, &res.OwnerID, &res.Name); err != nil {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			resources = append(resources, res)
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, resources)
	}
}

func createResource(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		effective, _ := delegation.EffectiveFromContext(r.Context())

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		var res Resource
		err := pool.QueryRow(r.Context(), `
			INSERT INTO resource (owner_id, name) VALUES ($1, $2) RETURNING id, owner_id, name
		`, effective.UserID, req.Name).Scan(&res.ID, &res.OwnerID, &res.Name)
		if err != nil {
			slog.Error("Failed to create resource", "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, res)
	}
}

func updateResource(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		effective, _ := delegation.EffectiveFromContext(r.Context())

		resourceID, err := uuid.Parse(chi.URLParam(r, "resource_id"))
		if err != nil {
			http.Error(w, "invalid resource id", http.StatusBadRequest)
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		var res Resource
		err = pool.QueryRow(r.Context(), `
			UPDATE resource SET name = $1 WHERE id = $2 AND owner_id = $3 RETURNING id, owner_id, name
		`, req.Name, resourceID, effective.UserID).Scan(&res.ID, &res.OwnerID, &res.Name)
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "resource not found", http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("Failed to update resource", "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, res)
	}
}

// resourceSnapshot loads a resource's current state for the change history
func resourceSnapshot(pool *pgxpool.Pool) audit.SnapshotFunc {
	return func(ctx context.Context, ownerID, resourceID uuid.UUID) (audit.Snapshot, error) {
		var res Resource
		err := pool.QueryRow(ctx, `
			SELECT id, owner_id, name FROM resource WHERE id = $1 AND owner_id = $2
		`, resourceID, ownerID).Scan(&res.ID, &res.OwnerID, &res.Name)
		if err != nil {
			return nil, err
		}
		return audit.Snapshot{
			"id":       res.ID.String(),
			"owner_id": res.OwnerID.String(),
			"name":     res.Name,
		}, nil
	}
}

func deleteResource(pool *pgxpool.Pool, sharingService *sharing.SharingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		effective, _ := delegation.EffectiveFromContext(r.Context())

		resourceID, err := uuid.Parse(chi.URLParam(r, "resource_id"))
		if err != nil {
			http.Error(w, "invalid resource id", http.StatusBadRequest)
			return
		}

		tx, err := pool.Begin(r.Context())
		if err != nil {
			slog.Error("Failed to begin transaction", "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		defer tx.Rollback(r.Context())

		tag, err := tx.Exec(r.Context(), `DELETE FROM resource WHERE id = $1 AND owner_id = $2`, resourceID, effective.UserID)
		if err != nil {
			slog.Error("Failed to delete resource", "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if tag.RowsAffected() == 0 {
			http.Error(w, "resource not found", http.StatusNotFound)
			return
		}

		// Sessions pointing at a deleted resource die with it, in the same
		// transaction
		if err := sharingService.WithTx(tx).RevokeAllForResource(r.Context(), resourceID); err != nil {
			slog.Error("Failed to revoke sessions for resource", "err", err, "resourceId", resourceID)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if err := tx.Commit(r.Context()); err != nil {
			slog.Error("Failed to commit resource deletion", "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]string{"status": "success"})
	}
}
