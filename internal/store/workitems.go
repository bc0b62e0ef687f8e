package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/planweave/planweave/pkg/models"
)

// MaterializeTree persists a reconciled draft list for a project. It runs
// two passes inside one transaction: insert every draft, then resolve parent
// links. Emission order guarantees epics precede their children, but not
// global parent-before-child order, so linking cannot happen during insert.
// Parent resolution prefers the draft key; title lookup is the fallback, and
// duplicate titles resolve to the first inserted item.
func (db *DB) MaterializeTree(projectID string, drafts []models.WorkItemDraft) ([]models.WorkItem, error) {
	now := time.Now().UTC()
	items := make([]models.WorkItem, 0, len(drafts))
	keyToID := make(map[string]string)
	titleToID := make(map[string]string)

	err := db.Transaction(func(tx *sql.Tx) error {
		for _, draft := range drafts {
			id := uuid.New().String()
			if draft.Key != "" {
				keyToID[draft.Key] = id
			}
			if _, taken := titleToID[draft.Title]; !taken {
				titleToID[draft.Title] = id
			}

			criteria, err := marshalCriteria(draft.AcceptanceCriteria)
			if err != nil {
				return fmt.Errorf("marshal acceptance criteria for %q: %w", draft.Title, err)
			}

			var hours any
			if draft.EstimatedHours != nil {
				hours = *draft.EstimatedHours
			}

			_, err = tx.Exec(`
				INSERT INTO work_items (
					id, project_id, parent_id, title, description, item_type,
					priority, acceptance_criteria, estimated_hours, status,
					order_index, category, generated, created_at, updated_at
				) VALUES (?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, id, projectID, draft.Title, draft.Description, string(draft.Type),
				string(draft.Priority), criteria, hours, string(models.ItemStatusAIGenerated),
				draft.OrderIndex, draft.Category, boolToInt(draft.Generated),
				formatTime(now), formatTime(now))
			if err != nil {
				return fmt.Errorf("insert work item %q: %w", draft.Title, err)
			}

			items = append(items, models.WorkItem{
				ID:                 id,
				ProjectID:          projectID,
				Title:              draft.Title,
				Description:        draft.Description,
				Type:               draft.Type,
				Priority:           draft.Priority,
				AcceptanceCriteria: draft.AcceptanceCriteria,
				EstimatedHours:     draft.EstimatedHours,
				Status:             models.ItemStatusAIGenerated,
				OrderIndex:         draft.OrderIndex,
				Category:           draft.Category,
				Generated:          draft.Generated,
				CreatedAt:          now,
				UpdatedAt:          now,
			})
		}

		for i, draft := range drafts {
			parentID := resolveParent(draft, keyToID, titleToID)
			if parentID == "" || parentID == items[i].ID {
				continue
			}
			if _, err := tx.Exec(`
				UPDATE work_items SET parent_id = ? WHERE id = ?
			`, parentID, items[i].ID); err != nil {
				return fmt.Errorf("link work item %q: %w", draft.Title, err)
			}
			items[i].ParentID = parentID
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

func resolveParent(draft models.WorkItemDraft, keyToID, titleToID map[string]string) string {
	if draft.ParentKey != "" {
		if id, ok := keyToID[draft.ParentKey]; ok {
			return id
		}
	}
	if draft.ParentReference != "" {
		if id, ok := titleToID[draft.ParentReference]; ok {
			return id
		}
	}
	return ""
}

// LoadProjectItems returns all work items for a project as a flat list,
// ordered by type rank, order index, then title.
func (db *DB) LoadProjectItems(projectID string) ([]*models.WorkItem, error) {
	rows, err := db.Query(`
		SELECT id, project_id, COALESCE(parent_id, ''), title,
			COALESCE(description, ''), item_type, priority,
			acceptance_criteria, estimated_hours, status, order_index,
			COALESCE(category, ''), generated, created_at, updated_at
		FROM work_items
		WHERE project_id = ?
		ORDER BY order_index, title
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load work items: %w", err)
	}
	defer rows.Close()

	var items []*models.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Type.Rank() < items[b].Type.Rank()
	})
	return items, nil
}

// LoadProjectTree returns the project's work items as root nodes with
// children attached.
func (db *DB) LoadProjectTree(projectID string) ([]*models.WorkItem, error) {
	items, err := db.LoadProjectItems(projectID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.WorkItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var roots []*models.WorkItem
	for _, item := range items {
		if item.ParentID == "" {
			roots = append(roots, item)
			continue
		}
		parent, ok := byID[item.ParentID]
		if !ok {
			roots = append(roots, item)
			continue
		}
		parent.Children = append(parent.Children, item)
	}
	return roots, nil
}

// OrphanReport returns non-epic items that have no parent link. A healthy
// reconciled project reports none unless it contained tasks with no stories.
func (db *DB) OrphanReport(projectID string) ([]*models.WorkItem, error) {
	items, err := db.LoadProjectItems(projectID)
	if err != nil {
		return nil, err
	}

	var orphans []*models.WorkItem
	for _, item := range items {
		if item.Type != models.ItemTypeEpic && item.ParentID == "" {
			orphans = append(orphans, item)
		}
	}
	return orphans, nil
}

func scanWorkItem(rows *sql.Rows) (*models.WorkItem, error) {
	var item models.WorkItem
	var criteria sql.NullString
	var hours sql.NullInt64
	var generated int
	var itemType, priority, status, createdAt, updatedAt string

	err := rows.Scan(&item.ID, &item.ProjectID, &item.ParentID, &item.Title,
		&item.Description, &itemType, &priority, &criteria, &hours, &status,
		&item.OrderIndex, &item.Category, &generated, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan work item: %w", err)
	}

	item.Type = models.ItemType(itemType)
	item.Priority = models.Priority(priority)
	item.Status = models.ItemStatus(status)
	item.Generated = generated != 0

	if criteria.Valid && criteria.String != "" {
		if err := json.Unmarshal([]byte(criteria.String), &item.AcceptanceCriteria); err != nil {
			return nil, fmt.Errorf("unmarshal acceptance criteria for %q: %w", item.Title, err)
		}
	}
	if hours.Valid {
		h := int(hours.Int64)
		item.EstimatedHours = &h
	}

	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &item, nil
}

func marshalCriteria(criteria []string) (any, error) {
	if len(criteria) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(criteria)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
