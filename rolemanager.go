// Package rolemanager is an embeddable role-based access control engine.
//
// The caller owns the database connection and any HTTP or session layer; the
// engine owns the authorization data model, the precedence algorithm that
// picks one winning rule per right, and the cache coherence protocol built
// on a global permissions version counter.
//
// Typical use:
//
//	rm, err := rolemanager.Open("postgres://…")
//	…
//	if err := rm.Migrate(ctx); err != nil { … }
//	granted, err := rm.Auth().HasRight(ctx, userID, "publish_article", &contextID)
package rolemanager

import (
	"context"
	"database/sql"
	"time"

	_ "embed"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/accesskit/rolemanager/internal/cache"
	"github.com/accesskit/rolemanager/internal/config"
	"github.com/accesskit/rolemanager/internal/db/bunx"
	"github.com/accesskit/rolemanager/internal/logging"
	"github.com/accesskit/rolemanager/internal/migrations"
	"github.com/accesskit/rolemanager/internal/repository"
	"github.com/accesskit/rolemanager/internal/services/authz"
)

// VERSION is the engine release version.
const VERSION = "1.0.0"

// SchemaSQL is the PostgreSQL reference DDL for the role_manager_* tables.
// Migrate creates the same schema programmatically for either supported
// dialect; the file is shipped for operators who manage schemas externally.
//
//go:embed rolemanager-create.sql
var SchemaSQL string

// PermissionCache is the process-wide permission cache contract. Entries are
// opaque serialized snapshots; implementations are best-effort and must be
// safe for concurrent use. See the memory, Redis and no-op backends selected
// through Options.
type PermissionCache interface {
	Fetch(ctx context.Context, key string) ([]byte, bool)
	Store(ctx context.Context, key string, value []byte)
}

// core bundles the collaborators shared by every manager: the database
// handle, the repositories, the logger, request validation and the
// permissions version bump.
type core struct {
	db       *bun.DB
	repos    *repository.Registry
	log      *logging.Logger
	validate *validator.Validate
}

// mutate runs fn and the permissions version bump in a single transaction,
// so that every permission-structural write commits together with the
// counter increment that invalidates cached resolutions.
func (c *core) mutate(ctx context.Context, fn func(ctx context.Context, repos *repository.Registry) error) error {
	return c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		repos := c.repos.WithTx(tx)
		if err := fn(ctx, repos); err != nil {
			return err
		}
		if err := repos.Config.Increment(ctx); err != nil {
			return storeError(err)
		}
		return nil
	})
}

// serializableAttempts bounds retries of a serializable transaction that
// keeps losing to concurrent writers.
const serializableAttempts = 3

// mutateSerializable is mutate under serializable isolation, for paths where
// a read decides a write and an interleaved writer must force one side to
// abort (the subgroup cycle check). Serialization failures retry the whole
// transaction.
func (c *core) mutateSerializable(ctx context.Context, fn func(ctx context.Context, repos *repository.Registry) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	return withSerializableRetry(serializableAttempts, func() error {
		return c.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
			repos := c.repos.WithTx(tx)
			if err := fn(ctx, repos); err != nil {
				return err
			}
			if err := repos.Config.Increment(ctx); err != nil {
				return storeError(err)
			}
			return nil
		})
	})
}

// withSerializableRetry runs fn up to attempts times, stopping at the first
// result that is not a serialization failure.
func withSerializableRetry(attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !repository.IsSerializationFailure(err) {
			return err
		}
	}
	return err
}

// checkStruct validates a request struct and converts validator failures
// into KindValidation errors.
func (c *core) checkStruct(req any) error {
	if err := c.validate.Struct(req); err != nil {
		return validationErrorf("invalid request: %v", err)
	}
	return nil
}

type options struct {
	l2           PermissionCache
	consoleLevel logging.Level
	dbLevel      logging.Level
}

// Option configures a RoleManager.
type Option func(*options) error

// WithPermissionCache installs a caller-provided process-wide cache backend.
func WithPermissionCache(pc PermissionCache) Option {
	return func(o *options) error {
		o.l2 = pc
		return nil
	}
}

// WithMemoryCache selects the in-process LRU cache backend. size <= 0 uses
// the default capacity.
func WithMemoryCache(size int) Option {
	return func(o *options) error {
		store, err := cache.NewLRUStore(size)
		if err != nil {
			return err
		}
		o.l2 = store
		return nil
	}
}

// WithRedisCache selects a shared Redis cache backend. ttl <= 0 stores
// entries without expiry.
func WithRedisCache(client redis.UniversalClient, ttl time.Duration) Option {
	return func(o *options) error {
		o.l2 = cache.NewRedisStore(client, ttl)
		return nil
	}
}

// WithoutCache disables the process-wide cache; resolutions are still
// deduplicated within a request via WithRequestScope.
func WithoutCache() Option {
	return func(o *options) error {
		o.l2 = cache.Noop{}
		return nil
	}
}

// WithLogLevels sets the console and database log thresholds
// (debug, info, notice, warning, error, critical, alert, fatal).
func WithLogLevels(console, db string) Option {
	return func(o *options) error {
		consoleLevel, err := logging.ParseLevel(console)
		if err != nil {
			return err
		}
		dbLevel, err := logging.ParseLevel(db)
		if err != nil {
			return err
		}
		o.consoleLevel = consoleLevel
		o.dbLevel = dbLevel
		return nil
	}
}

// RoleManager is the engine facade. Create one per database and share it;
// all methods are safe for concurrent use.
type RoleManager struct {
	core     *core
	resolver *authz.Resolver
	ownsDB   bool

	users       *UsersManager
	groups      *GroupsManager
	rights      *RightsManager
	rightGroups *RightGroupsManager
	rightTypes  *RightTypesManager
	roles       *RolesManager
	contexts    *ContextsManager
	auth        *AuthManager
	logs        *LogsManager
}

// New wraps an existing bun database handle. The caller keeps ownership of
// the handle; Close will not close it.
func New(db *bun.DB, opts ...Option) (*RoleManager, error) {
	o := &options{
		consoleLevel: logging.LevelWarning,
		dbLevel:      logging.LevelError,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.l2 == nil {
		store, err := cache.NewLRUStore(0)
		if err != nil {
			return nil, err
		}
		o.l2 = store
	}

	repos := repository.NewRegistry(db)
	log := logging.New(repos.Logs,
		logging.WithConsoleLevel(o.consoleLevel),
		logging.WithDBLevel(o.dbLevel),
	)

	c := &core{
		db:       db,
		repos:    repos,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	resolver := authz.NewResolver(db, repos.Groups, repos.Config, log, o.l2)

	rm := &RoleManager{core: c, resolver: resolver}
	rm.users = &UsersManager{core: c}
	rm.groups = &GroupsManager{core: c}
	rm.rights = &RightsManager{core: c}
	rm.rightGroups = &RightGroupsManager{core: c}
	rm.rightTypes = &RightTypesManager{core: c}
	rm.roles = &RolesManager{core: c}
	rm.contexts = &ContextsManager{core: c}
	rm.auth = &AuthManager{core: c, resolver: resolver}
	rm.logs = &LogsManager{core: c}
	return rm, nil
}

// Open connects to the database at dsn (postgres:// URL or SQLite path) and
// wraps it. Close will close the connection.
func Open(dsn string, opts ...Option) (*RoleManager, error) {
	db, err := bunx.NewDB(dsn)
	if err != nil {
		return nil, err
	}
	rm, err := New(db, opts...)
	if err != nil {
		bunx.Close(db)
		return nil, err
	}
	rm.ownsDB = true
	return rm, nil
}

// OpenFromEnv builds a RoleManager from ROLEMANAGER_* environment variables.
func OpenFromEnv(opts ...Option) (*RoleManager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	consoleLevel := cfg.ConsoleLogLevel
	if cfg.Debug {
		consoleLevel = "debug"
	}

	base := []Option{WithLogLevels(consoleLevel, cfg.DBLogLevel)}
	switch cfg.CacheBackend {
	case config.CacheMemory:
		base = append(base, WithMemoryCache(cfg.CacheSize))
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		base = append(base, WithRedisCache(client, 0))
	case config.CacheNone:
		base = append(base, WithoutCache())
	}

	return Open(cfg.DatabaseURL, append(base, opts...)...)
}

// Close releases the database handle if this RoleManager opened it.
func (rm *RoleManager) Close() error {
	if !rm.ownsDB {
		return nil
	}
	return bunx.Close(rm.core.db)
}

// Migrate applies the schema migrations, taking the migration lock to guard
// against concurrent migrators.
func (rm *RoleManager) Migrate(ctx context.Context) error {
	migrator := migrate.NewMigrator(rm.core.db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return storeError(err)
	}
	if err := migrator.Lock(ctx); err != nil {
		return storeError(err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	if _, err := migrator.Migrate(ctx); err != nil {
		return storeError(err)
	}
	return nil
}

// WithRequestScope attaches the request-scoped permission cache to ctx.
// Derive all per-request work from the returned context so repeated checks
// within the request resolve at most once per (user, context) pair.
func (rm *RoleManager) WithRequestScope(ctx context.Context) context.Context {
	return authz.WithRequestCache(ctx)
}

// Version returns the current permissions version counter.
func (rm *RoleManager) Version(ctx context.Context) (int64, error) {
	version, err := rm.core.repos.Config.Version(ctx)
	if err != nil {
		return 0, storeError(err)
	}
	return version, nil
}

// InvalidateCache advances the permissions version, marking every cached
// resolution stale. Intended for operators repairing data out of band.
func (rm *RoleManager) InvalidateCache(ctx context.Context) error {
	return rm.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		return nil
	})
}

// SetConsoleLogLevel changes the console log threshold at runtime.
func (rm *RoleManager) SetConsoleLogLevel(level string) error {
	parsed, err := logging.ParseLevel(level)
	if err != nil {
		return validationErrorf("%v", err)
	}
	rm.core.log.SetConsoleLevel(parsed)
	return nil
}

// SetDBLogLevel changes the database log threshold at runtime.
func (rm *RoleManager) SetDBLogLevel(level string) error {
	parsed, err := logging.ParseLevel(level)
	if err != nil {
		return validationErrorf("%v", err)
	}
	rm.core.log.SetDBLevel(parsed)
	return nil
}

// Manager factories.

func (rm *RoleManager) Users() *UsersManager             { return rm.users }
func (rm *RoleManager) Groups() *GroupsManager           { return rm.groups }
func (rm *RoleManager) Rights() *RightsManager           { return rm.rights }
func (rm *RoleManager) RightGroups() *RightGroupsManager { return rm.rightGroups }
func (rm *RoleManager) RightTypes() *RightTypesManager   { return rm.rightTypes }
func (rm *RoleManager) Roles() *RolesManager             { return rm.roles }
func (rm *RoleManager) Contexts() *ContextsManager       { return rm.contexts }
func (rm *RoleManager) Auth() *AuthManager               { return rm.auth }
func (rm *RoleManager) Logs() *LogsManager               { return rm.logs }
