package store

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		external_id TEXT,
		title TEXT NOT NULL,
		updated_at TEXT,
		is_synchronized INTEGER NOT NULL DEFAULT 0,
		synchronization_mate_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_external ON projects(external_id)`,

	`CREATE TABLE IF NOT EXISTS objectives (
		id TEXT PRIMARY KEY,
		external_id TEXT,
		project_id TEXT NOT NULL,
		parent_objective_id TEXT,
		author_id TEXT,
		objective_type TEXT,
		title TEXT NOT NULL,
		description TEXT,
		status INTEGER NOT NULL DEFAULT 0,
		creation_date TEXT,
		due_date TEXT,
		updated_at TEXT,
		is_synchronized INTEGER NOT NULL DEFAULT 0,
		synchronization_mate_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_objectives_project ON objectives(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_objectives_parent ON objectives(parent_objective_id)`,
	`CREATE INDEX IF NOT EXISTS idx_objectives_external ON objectives(external_id)`,

	`CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		external_id TEXT,
		relative_path TEXT NOT NULL,
		item_type INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT,
		is_synchronized INTEGER NOT NULL DEFAULT 0,
		synchronization_mate_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_external ON items(external_id)`,

	`CREATE TABLE IF NOT EXISTS project_items (
		project_id TEXT NOT NULL REFERENCES projects(id),
		item_id TEXT NOT NULL REFERENCES items(id),
		PRIMARY KEY (project_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS objective_items (
		objective_id TEXT NOT NULL REFERENCES objectives(id),
		item_id TEXT NOT NULL REFERENCES items(id),
		PRIMARY KEY (objective_id, item_id)
	)`,

	`CREATE TABLE IF NOT EXISTS bim_elements (
		id TEXT PRIMARY KEY,
		global_id TEXT NOT NULL,
		parent_name TEXT NOT NULL DEFAULT '',
		element_name TEXT,
		UNIQUE (global_id, parent_name)
	)`,
	`CREATE TABLE IF NOT EXISTS bim_element_objectives (
		objective_id TEXT NOT NULL REFERENCES objectives(id),
		bim_element_id TEXT NOT NULL REFERENCES bim_elements(id),
		PRIMARY KEY (objective_id, bim_element_id)
	)`,

	`CREATE TABLE IF NOT EXISTS dynamic_fields (
		id TEXT PRIMARY KEY,
		external_id TEXT,
		objective_id TEXT NOT NULL,
		parent_field_id TEXT,
		type TEXT,
		name TEXT,
		value TEXT,
		updated_at TEXT,
		is_synchronized INTEGER NOT NULL DEFAULT 0,
		synchronization_mate_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dynamic_fields_objective ON dynamic_fields(objective_id)`,

	`CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		objective_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		guid TEXT,
		position_x REAL NOT NULL DEFAULT 0,
		position_y REAL NOT NULL DEFAULT 0,
		position_z REAL NOT NULL DEFAULT 0,
		camera_x REAL NOT NULL DEFAULT 0,
		camera_y REAL NOT NULL DEFAULT 0,
		camera_z REAL NOT NULL DEFAULT 0,
		is_synchronized INTEGER NOT NULL DEFAULT 0,
		synchronization_mate_id TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_locations_objective ON locations(objective_id)`,

	`CREATE TABLE IF NOT EXISTS synchronizations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_synchronizations_user ON synchronizations(user_id, date)`,
}
