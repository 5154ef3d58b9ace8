package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table definitions fed to ent's migrator. Column order matters: the
// repositories select and insert by the names listed here.

var (
	// PreferencesColumns holds one row per user.
	PreferencesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString, Unique: true},
		{Name: "format", Type: field.TypeString, Default: "text"},
		{Name: "explanation_style", Type: field.TypeString, Default: "balanced"},
		{Name: "pace", Type: field.TypeString, Default: "normal"},
		{Name: "complexity", Type: field.TypeString, Default: "intermediate"},
		{Name: "wants_examples", Type: field.TypeBool, Default: true},
		{Name: "wants_analogies", Type: field.TypeBool, Default: true},
		{Name: "wants_exercises", Type: field.TypeBool, Default: false},
		{Name: "change_count", Type: field.TypeInt64, Default: 0},
		{Name: "updated_at", Type: field.TypeTime},
	}
	PreferencesTable = &schema.Table{
		Name:       "preferences",
		Columns:    PreferencesColumns,
		PrimaryKey: []*schema.Column{PreferencesColumns[0]},
	}

	// TeachingArtifactsColumns holds the final candidate of every cycle.
	TeachingArtifactsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "user_id", Type: field.TypeString},
		{Name: "candidate_id", Type: field.TypeString},
		{Name: "format", Type: field.TypeString},
		{Name: "attempt", Type: field.TypeInt},
		{Name: "degraded", Type: field.TypeBool, Default: false},
		{Name: "total_score", Type: field.TypeInt},
		{Name: "passed", Type: field.TypeBool},
		{Name: "heuristic", Type: field.TypeBool, Default: false},
		{Name: "subject", Type: field.TypeString, Default: ""},
		{Name: "request", Type: field.TypeJSON},
		{Name: "body", Type: field.TypeJSON},
		{Name: "evaluation", Type: field.TypeJSON},
	}
	TeachingArtifactsTable = &schema.Table{
		Name:       "teaching_artifacts",
		Columns:    TeachingArtifactsColumns,
		PrimaryKey: []*schema.Column{TeachingArtifactsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "teachingartifact_user_id", Columns: []*schema.Column{TeachingArtifactsColumns[3]}},
			{Name: "teachingartifact_timestamp", Columns: []*schema.Column{TeachingArtifactsColumns[2]}},
		},
	}

	// LLMRequestEventsColumns records every provider call.
	LLMRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	LLMRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    LLMRequestEventsColumns,
		PrimaryKey: []*schema.Column{LLMRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{LLMRequestEventsColumns[5]}},
			{Name: "llmrequestevent_model", Columns: []*schema.Column{LLMRequestEventsColumns[4]}},
			{Name: "llmrequestevent_timestamp", Columns: []*schema.Column{LLMRequestEventsColumns[2]}},
		},
	}

	// Tables lists every table the store migrates.
	Tables = []*schema.Table{
		PreferencesTable,
		TeachingArtifactsTable,
		LLMRequestEventsTable,
		SequencesTable,
	}
)
