package table

import (
	"strconv"

	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// genreIndex assigns stable IDs to genre names in first-seen order
// across the detail table. category and game_category share it so the
// mapping rows always reference the IDs the category table declares.
type genreIndex struct {
	names []string
	ids   map[string]int
}

func (b *Builder) genreIndex() (*genreIndex, error) {
	if b.genres != nil {
		return b.genres, nil
	}

	cols, err := requireColumns(b.in.Details, "detail", "genres")
	if err != nil {
		return nil, err
	}

	idx := &genreIndex{ids: make(map[string]int)}
	for _, row := range b.in.Details.Rows {
		for _, name := range splitList(row[cols[0]]) {
			if _, seen := idx.ids[name]; seen {
				continue
			}
			idx.names = append(idx.names, name)
			idx.ids[name] = len(idx.names)
		}
	}
	b.genres = idx
	return idx, nil
}

func (b *Builder) buildCategory() (*snapshot.Snapshot, error) {
	idx, err := b.genreIndex()
	if err != nil {
		return nil, err
	}

	snap := snapshot.New("id", "category_name")
	for i, name := range idx.names {
		snap.Rows = append(snap.Rows, []string{strconv.Itoa(i + 1), name})
	}
	return snap, nil
}

// buildGameCategory emits one (category, game) pair per genre of every
// detailed game, with a surrogate ID in emission order.
func (b *Builder) buildGameCategory() (*snapshot.Snapshot, error) {
	idx, err := b.genreIndex()
	if err != nil {
		return nil, err
	}
	cols, err := requireColumns(b.in.Details, "detail", "appid", "genres")
	if err != nil {
		return nil, err
	}

	snap := snapshot.New("id", "category_id", "game_id")
	for _, row := range b.in.Details.Rows {
		appID := row[cols[0]]
		for _, name := range splitList(row[cols[1]]) {
			id, ok := idx.ids[name]
			if !ok {
				continue
			}
			snap.Rows = append(snap.Rows, []string{
				strconv.Itoa(len(snap.Rows) + 1),
				strconv.Itoa(id),
				appID,
			})
		}
	}
	return snap, nil
}
