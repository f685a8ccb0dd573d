package orm

import (
	"github.com/baseorm/baseorm/internal/adapters/database"
	"github.com/baseorm/baseorm/internal/adapters/storage"
	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/query/builder"
	"github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/core/query/filterexpr"
	"github.com/baseorm/baseorm/internal/core/schema"
)

// Declarations.
type (
	Model       = schema.Model
	Field       = schema.Field
	FieldOption = schema.FieldOption
	Registry    = schema.Registry
)

// Queries.
type (
	QuerySet  = builder.QuerySet
	Record    = builder.Record
	Condition = domain.Condition
)

// Connections and storage.
type (
	Config     = database.Config
	Connection = database.Connection
	Storage    = storage.Storage
)

// Error kinds; match them with errors.Is.
var (
	ErrQuery           = errs.ErrQuery
	ErrUnknownField    = errs.ErrUnknownField
	ErrNotFound        = errs.ErrNotFound
	ErrMultipleFound   = errs.ErrMultipleFound
	ErrIndexOutOfRange = errs.ErrIndexOutOfRange
	ErrMigration       = errs.ErrMigration
	ErrIntegrity       = errs.ErrIntegrity
	ErrConnection      = errs.ErrConnection
	ErrValidation      = errs.ErrValidation
)

var (
	NewModel    = schema.NewModel
	NewRegistry = schema.NewRegistry
	LoadSchema  = schema.LoadFile

	IntegerField    = schema.IntegerField
	CharField       = schema.CharField
	TextField       = schema.TextField
	FloatField      = schema.FloatField
	BooleanField    = schema.BooleanField
	DateTimeField   = schema.DateTimeField
	JSONField       = schema.JSONField
	ForeignKeyField = schema.ForeignKeyField

	PrimaryKey    = schema.PrimaryKey
	AutoIncrement = schema.AutoIncrement
	Unique        = schema.Unique
	NotNull       = schema.NotNull
	Default       = schema.Default
	Column        = schema.Column
	MaxLength     = schema.MaxLength
	OnDelete      = schema.OnDelete
	AutoNow       = schema.AutoNow
	AutoNowAdd    = schema.AutoNowAdd
)

// Where builds a condition from a lookup key such as "age__gte".
func Where(key string, value any) Condition { return builder.Where(key, value) }

// ParseFilter reads a textual condition such as `name__in=[a, b]`.
func ParseFilter(expr string) (Condition, error) { return filterexpr.Parse(expr) }

// Statement returns the SQL and parameters attached to err, if any.
func Statement(err error) (string, []any, bool) { return errs.Statement(err) }
