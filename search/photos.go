package search

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Filters narrows a photo search. Zero values mean "no constraint".
type Filters struct {
	Season    string
	TimeOfDay string
	Emotion   string // dominant photo emotion
	SceneType string
	PersonID  uint // photos containing this person, via the derived links
	Limit     uint64
	Offset    uint64
}

// Result is one photo row matched by a search.
type Result struct {
	ID              string  `json:"id"`
	FileName        string  `json:"file_name"`
	Path            string  `json:"path"`
	Season          string  `json:"season"`
	TimeOfDay       string  `json:"time_of_day"`
	SceneType       string  `json:"scene_type"`
	DominantEmotion string  `json:"dominant_emotion"`
	MoodScore       float64 `json:"mood_score"`
	Caption         string  `json:"caption"`
}

// Photos runs a filtered photo query. The query is assembled dynamically so
// only the requested constraints appear in the SQL.
func Photos(db *sql.DB, f Filters) ([]Result, error) {
	sqlStr, args, err := buildPhotosQuery(f)
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for photo search: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute photo search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.ID, &r.FileName, &r.Path,
			&r.Season, &r.TimeOfDay, &r.SceneType,
			&r.DominantEmotion, &r.MoodScore, &r.Caption,
		); err != nil {
			return nil, fmt.Errorf("failed to scan photo search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photo search rows: %w", err)
	}
	return results, nil
}

func buildPhotosQuery(f Filters) (string, []interface{}, error) {
	queryBuilder := psql.Select(
		"photos.id", "photos.file_name", "photos.path",
		"photos.season", "photos.time_of_day", "photos.scene_type",
		"photos.dominant_emotion", "photos.mood_score", "photos.caption",
	).From("photos").Where(sq.Eq{"photos.deleted_at": nil})

	if f.Season != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"photos.season": f.Season})
	}
	if f.TimeOfDay != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"photos.time_of_day": f.TimeOfDay})
	}
	if f.Emotion != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"photos.dominant_emotion": f.Emotion})
	}
	if f.SceneType != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"photos.scene_type": f.SceneType})
	}
	if f.PersonID != 0 {
		queryBuilder = queryBuilder.
			Join("photo_people ON photo_people.photo_id = photos.id").
			Where(sq.Eq{"photo_people.person_id": f.PersonID})
	}

	queryBuilder = queryBuilder.OrderBy("photos.file_name ASC")
	if f.Limit > 0 {
		queryBuilder = queryBuilder.Limit(f.Limit)
	}
	if f.Offset > 0 {
		queryBuilder = queryBuilder.Offset(f.Offset)
	}

	return queryBuilder.ToSql()
}
