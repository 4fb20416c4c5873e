package migrate

// canonicalTables is the table set covered by snapshots and the verify
// cross-check, in dependency order.
var canonicalTables = []string{
	"organizations",
	"users",
	"user_settings",
	"memory_records",
	"agents",
	"blocks",
	"agent_blocks",
	"steps",
	"messages",
	"tools",
	"sandbox_configs",
	"env_vars",
	"files",
	"cloud_file_mapping",
}

// orphanDeletes remove rows whose owning tenant, user or parent no longer
// exists in the registry. Orphans are dropped, not migrated. Ordered so
// parents are pruned before their dependents are checked.
var orphanDeletes = []struct {
	Table string
	SQL   string
}{
	{"users", `DELETE FROM users WHERE organization_id IS NOT NULL
		AND organization_id NOT IN (SELECT id FROM organizations)`},
	{"user_settings", `DELETE FROM user_settings
		WHERE user_id NOT IN (SELECT id FROM users)`},
	{"memory_records", `DELETE FROM memory_records
		WHERE organization_id NOT IN (SELECT id FROM organizations)
		OR user_id NOT IN (SELECT id FROM users)`},
	{"agents", `DELETE FROM agents
		WHERE organization_id NOT IN (SELECT id FROM organizations)`},
	{"blocks", `DELETE FROM blocks
		WHERE organization_id NOT IN (SELECT id FROM organizations)`},
	{"agent_blocks", `DELETE FROM agent_blocks
		WHERE agent_id NOT IN (SELECT id FROM agents)
		OR block_id NOT IN (SELECT id FROM blocks)`},
	{"steps", `DELETE FROM steps
		WHERE organization_id NOT IN (SELECT id FROM organizations)`},
	{"messages", `DELETE FROM messages
		WHERE organization_id NOT IN (SELECT id FROM organizations)
		OR user_id NOT IN (SELECT id FROM users)`},
	{"tools", `DELETE FROM tools
		WHERE organization_id NOT IN (SELECT id FROM organizations)`},
	{"sandbox_configs", `DELETE FROM sandbox_configs
		WHERE organization_id NOT IN (SELECT id FROM organizations)`},
	{"files", `DELETE FROM files
		WHERE organization_id NOT IN (SELECT id FROM organizations)`},
	{"cloud_file_mapping", `DELETE FROM cloud_file_mapping
		WHERE local_file_id NOT IN (SELECT id FROM files)`},
}
