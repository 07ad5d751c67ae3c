package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mrsbim/bimsync/internal/model"
)

// validator is implemented by every entity row.
type validator interface {
	Validate() error
}

func validate(table, key string, v validator) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("invalid %s row %s: %w", table, key, err)
	}
	return nil
}

// ===== projects =====

func loadProjects(ctx context.Context, conn *sql.DB) (map[string]model.Project, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, external_id, title, updated_at, is_synchronized, synchronization_mate_id
		FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Project)
	for rows.Next() {
		var p model.Project
		var externalID, mateID, updatedAt sql.NullString
		var mirror int
		if err := rows.Scan(&p.ID, &externalID, &p.Title, &updatedAt, &mirror, &mateID); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.ExternalID = externalID.String
		p.SynchronizationMateID = mateID.String
		p.UpdatedAt = parseTime(updatedAt)
		p.IsSynchronized = mirror == 1
		out[p.ID] = p
	}
	return out, rows.Err()
}

func upsertProject(ctx context.Context, tx *sql.Tx, p model.Project) error {
	if err := validate("projects", p.ID, &p); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, external_id, title, updated_at, is_synchronized, synchronization_mate_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			external_id = excluded.external_id,
			title = excluded.title,
			updated_at = excluded.updated_at,
			is_synchronized = excluded.is_synchronized,
			synchronization_mate_id = excluded.synchronization_mate_id`,
		p.ID, nullString(p.ExternalID), p.Title, formatTime(p.UpdatedAt),
		boolToInt(p.IsSynchronized), nullString(p.SynchronizationMateID),
	)
	return err
}

func deleteProject(ctx context.Context, tx *sql.Tx, p model.Project) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, p.ID)
	return err
}

// ===== objectives =====

func loadObjectives(ctx context.Context, conn *sql.DB) (map[string]model.Objective, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, external_id, project_id, parent_objective_id, author_id, objective_type,
		       title, description, status, creation_date, due_date, updated_at,
		       is_synchronized, synchronization_mate_id
		FROM objectives`)
	if err != nil {
		return nil, fmt.Errorf("failed to query objectives: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Objective)
	for rows.Next() {
		var o model.Objective
		var externalID, parentID, authorID, objType, description sql.NullString
		var creation, due, updated, mateID sql.NullString
		var mirror int
		if err := rows.Scan(
			&o.ID, &externalID, &o.ProjectID, &parentID, &authorID, &objType,
			&o.Title, &description, &o.Status, &creation, &due, &updated,
			&mirror, &mateID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan objective: %w", err)
		}
		o.ExternalID = externalID.String
		o.ParentObjectiveID = parentID.String
		o.AuthorID = authorID.String
		o.ObjectiveType = objType.String
		o.Description = description.String
		o.CreationDate = parseTime(creation)
		o.DueDate = parseTime(due)
		o.UpdatedAt = parseTime(updated)
		o.IsSynchronized = mirror == 1
		o.SynchronizationMateID = mateID.String
		out[o.ID] = o
	}
	return out, rows.Err()
}

func upsertObjective(ctx context.Context, tx *sql.Tx, o model.Objective) error {
	if err := validate("objectives", o.ID, &o); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO objectives (
			id, external_id, project_id, parent_objective_id, author_id, objective_type,
			title, description, status, creation_date, due_date, updated_at,
			is_synchronized, synchronization_mate_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			external_id = excluded.external_id,
			project_id = excluded.project_id,
			parent_objective_id = excluded.parent_objective_id,
			author_id = excluded.author_id,
			objective_type = excluded.objective_type,
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			creation_date = excluded.creation_date,
			due_date = excluded.due_date,
			updated_at = excluded.updated_at,
			is_synchronized = excluded.is_synchronized,
			synchronization_mate_id = excluded.synchronization_mate_id`,
		o.ID, nullString(o.ExternalID), o.ProjectID, nullString(o.ParentObjectiveID),
		nullString(o.AuthorID), nullString(o.ObjectiveType), o.Title, nullString(o.Description),
		int(o.Status), formatTime(o.CreationDate), formatTime(o.DueDate), formatTime(o.UpdatedAt),
		boolToInt(o.IsSynchronized), nullString(o.SynchronizationMateID),
	)
	return err
}

func deleteObjective(ctx context.Context, tx *sql.Tx, o model.Objective) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM objectives WHERE id = ?`, o.ID)
	return err
}

// ===== items =====

func loadItems(ctx context.Context, conn *sql.DB) (map[string]model.Item, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, external_id, relative_path, item_type, updated_at, is_synchronized, synchronization_mate_id
		FROM items`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Item)
	for rows.Next() {
		var i model.Item
		var externalID, updatedAt, mateID sql.NullString
		var mirror int
		if err := rows.Scan(&i.ID, &externalID, &i.RelativePath, &i.ItemType, &updatedAt, &mirror, &mateID); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		i.ExternalID = externalID.String
		i.UpdatedAt = parseTime(updatedAt)
		i.IsSynchronized = mirror == 1
		i.SynchronizationMateID = mateID.String
		out[i.ID] = i
	}
	return out, rows.Err()
}

func upsertItem(ctx context.Context, tx *sql.Tx, i model.Item) error {
	if err := validate("items", i.ID, &i); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO items (id, external_id, relative_path, item_type, updated_at, is_synchronized, synchronization_mate_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			external_id = excluded.external_id,
			relative_path = excluded.relative_path,
			item_type = excluded.item_type,
			updated_at = excluded.updated_at,
			is_synchronized = excluded.is_synchronized,
			synchronization_mate_id = excluded.synchronization_mate_id`,
		i.ID, nullString(i.ExternalID), i.RelativePath, int(i.ItemType), formatTime(i.UpdatedAt),
		boolToInt(i.IsSynchronized), nullString(i.SynchronizationMateID),
	)
	return err
}

func deleteItem(ctx context.Context, tx *sql.Tx, i model.Item) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, i.ID)
	return err
}

// ===== bim_elements =====

func loadBimElements(ctx context.Context, conn *sql.DB) (map[string]model.BimElement, error) {
	rows, err := conn.QueryContext(ctx, `SELECT id, global_id, parent_name, element_name FROM bim_elements`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bim elements: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.BimElement)
	for rows.Next() {
		var b model.BimElement
		var name sql.NullString
		if err := rows.Scan(&b.ID, &b.GlobalID, &b.ParentName, &name); err != nil {
			return nil, fmt.Errorf("failed to scan bim element: %w", err)
		}
		b.ElementName = name.String
		out[b.ID] = b
	}
	return out, rows.Err()
}

func upsertBimElement(ctx context.Context, tx *sql.Tx, b model.BimElement) error {
	if err := validate("bim_elements", b.ID, &b); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bim_elements (id, global_id, parent_name, element_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			global_id = excluded.global_id,
			parent_name = excluded.parent_name,
			element_name = excluded.element_name`,
		b.ID, b.GlobalID, b.ParentName, nullString(b.ElementName),
	)
	return err
}

func deleteBimElement(ctx context.Context, tx *sql.Tx, b model.BimElement) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM bim_elements WHERE id = ?`, b.ID)
	return err
}

// ===== dynamic_fields =====

func loadDynamicFields(ctx context.Context, conn *sql.DB) (map[string]model.DynamicField, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, external_id, objective_id, parent_field_id, type, name, value,
		       updated_at, is_synchronized, synchronization_mate_id
		FROM dynamic_fields`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dynamic fields: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.DynamicField)
	for rows.Next() {
		var f model.DynamicField
		var externalID, parentID, typ, name, value, updatedAt, mateID sql.NullString
		var mirror int
		if err := rows.Scan(&f.ID, &externalID, &f.ObjectiveID, &parentID, &typ, &name, &value,
			&updatedAt, &mirror, &mateID); err != nil {
			return nil, fmt.Errorf("failed to scan dynamic field: %w", err)
		}
		f.ExternalID = externalID.String
		f.ParentFieldID = parentID.String
		f.Type = typ.String
		f.Name = name.String
		f.Value = value.String
		f.UpdatedAt = parseTime(updatedAt)
		f.IsSynchronized = mirror == 1
		f.SynchronizationMateID = mateID.String
		out[f.ID] = f
	}
	return out, rows.Err()
}

func upsertDynamicField(ctx context.Context, tx *sql.Tx, f model.DynamicField) error {
	if err := validate("dynamic_fields", f.ID, &f); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dynamic_fields (
			id, external_id, objective_id, parent_field_id, type, name, value,
			updated_at, is_synchronized, synchronization_mate_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			external_id = excluded.external_id,
			objective_id = excluded.objective_id,
			parent_field_id = excluded.parent_field_id,
			type = excluded.type,
			name = excluded.name,
			value = excluded.value,
			updated_at = excluded.updated_at,
			is_synchronized = excluded.is_synchronized,
			synchronization_mate_id = excluded.synchronization_mate_id`,
		f.ID, nullString(f.ExternalID), f.ObjectiveID, nullString(f.ParentFieldID),
		nullString(f.Type), nullString(f.Name), nullString(f.Value), formatTime(f.UpdatedAt),
		boolToInt(f.IsSynchronized), nullString(f.SynchronizationMateID),
	)
	return err
}

func deleteDynamicField(ctx context.Context, tx *sql.Tx, f model.DynamicField) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM dynamic_fields WHERE id = ?`, f.ID)
	return err
}

// ===== locations =====

func loadLocations(ctx context.Context, conn *sql.DB) (map[string]model.Location, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, objective_id, item_id, guid,
		       position_x, position_y, position_z, camera_x, camera_y, camera_z,
		       is_synchronized, synchronization_mate_id
		FROM locations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Location)
	for rows.Next() {
		var l model.Location
		var guid, mateID sql.NullString
		var mirror int
		if err := rows.Scan(&l.ID, &l.ObjectiveID, &l.ItemID, &guid,
			&l.Position.X, &l.Position.Y, &l.Position.Z,
			&l.CameraPosition.X, &l.CameraPosition.Y, &l.CameraPosition.Z,
			&mirror, &mateID); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		l.Guid = guid.String
		l.IsSynchronized = mirror == 1
		l.SynchronizationMateID = mateID.String
		out[l.ID] = l
	}
	return out, rows.Err()
}

func upsertLocation(ctx context.Context, tx *sql.Tx, l model.Location) error {
	if err := validate("locations", l.ID, &l); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO locations (
			id, objective_id, item_id, guid,
			position_x, position_y, position_z, camera_x, camera_y, camera_z,
			is_synchronized, synchronization_mate_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			objective_id = excluded.objective_id,
			item_id = excluded.item_id,
			guid = excluded.guid,
			position_x = excluded.position_x,
			position_y = excluded.position_y,
			position_z = excluded.position_z,
			camera_x = excluded.camera_x,
			camera_y = excluded.camera_y,
			camera_z = excluded.camera_z,
			is_synchronized = excluded.is_synchronized,
			synchronization_mate_id = excluded.synchronization_mate_id`,
		l.ID, l.ObjectiveID, l.ItemID, nullString(l.Guid),
		l.Position.X, l.Position.Y, l.Position.Z,
		l.CameraPosition.X, l.CameraPosition.Y, l.CameraPosition.Z,
		boolToInt(l.IsSynchronized), nullString(l.SynchronizationMateID),
	)
	return err
}

func deleteLocation(ctx context.Context, tx *sql.Tx, l model.Location) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, l.ID)
	return err
}

// ===== link tables =====

func loadProjectItems(ctx context.Context, conn *sql.DB) (map[string]model.ProjectItem, error) {
	rows, err := conn.QueryContext(ctx, `SELECT project_id, item_id FROM project_items`)
	if err != nil {
		return nil, fmt.Errorf("failed to query project items: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.ProjectItem)
	for rows.Next() {
		var l model.ProjectItem
		if err := rows.Scan(&l.ProjectID, &l.ItemID); err != nil {
			return nil, fmt.Errorf("failed to scan project item: %w", err)
		}
		out[linkKey(l.ProjectID, l.ItemID)] = l
	}
	return out, rows.Err()
}

func insertProjectItem(ctx context.Context, tx *sql.Tx, l model.ProjectItem) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO project_items (project_id, item_id) VALUES (?, ?)`, l.ProjectID, l.ItemID)
	return err
}

func deleteProjectItem(ctx context.Context, tx *sql.Tx, l model.ProjectItem) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM project_items WHERE project_id = ? AND item_id = ?`, l.ProjectID, l.ItemID)
	return err
}

func loadObjectiveItems(ctx context.Context, conn *sql.DB) (map[string]model.ObjectiveItem, error) {
	rows, err := conn.QueryContext(ctx, `SELECT objective_id, item_id FROM objective_items`)
	if err != nil {
		return nil, fmt.Errorf("failed to query objective items: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.ObjectiveItem)
	for rows.Next() {
		var l model.ObjectiveItem
		if err := rows.Scan(&l.ObjectiveID, &l.ItemID); err != nil {
			return nil, fmt.Errorf("failed to scan objective item: %w", err)
		}
		out[linkKey(l.ObjectiveID, l.ItemID)] = l
	}
	return out, rows.Err()
}

func insertObjectiveItem(ctx context.Context, tx *sql.Tx, l model.ObjectiveItem) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO objective_items (objective_id, item_id) VALUES (?, ?)`, l.ObjectiveID, l.ItemID)
	return err
}

func deleteObjectiveItem(ctx context.Context, tx *sql.Tx, l model.ObjectiveItem) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM objective_items WHERE objective_id = ? AND item_id = ?`, l.ObjectiveID, l.ItemID)
	return err
}

func loadBimLinks(ctx context.Context, conn *sql.DB) (map[string]model.BimElementObjective, error) {
	rows, err := conn.QueryContext(ctx, `SELECT objective_id, bim_element_id FROM bim_element_objectives`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bim element links: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.BimElementObjective)
	for rows.Next() {
		var l model.BimElementObjective
		if err := rows.Scan(&l.ObjectiveID, &l.BimElementID); err != nil {
			return nil, fmt.Errorf("failed to scan bim element link: %w", err)
		}
		out[linkKey(l.ObjectiveID, l.BimElementID)] = l
	}
	return out, rows.Err()
}

func insertBimLink(ctx context.Context, tx *sql.Tx, l model.BimElementObjective) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO bim_element_objectives (objective_id, bim_element_id) VALUES (?, ?)`,
		l.ObjectiveID, l.BimElementID)
	return err
}

func deleteBimLink(ctx context.Context, tx *sql.Tx, l model.BimElementObjective) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM bim_element_objectives WHERE objective_id = ? AND bim_element_id = ?`,
		l.ObjectiveID, l.BimElementID)
	return err
}

func linkKey(owner, target string) string {
	return owner + "|" + target
}
