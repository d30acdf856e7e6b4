package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epicvibe/platform/internal/database"
	"github.com/epicvibe/platform/internal/epicvibe"
	"github.com/epicvibe/platform/internal/migrations"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newGame(title, creator string, plays, likes, shares int64, age time.Duration) epicvibe.Game {
	return epicvibe.Game{
		Title:     title,
		Creator:   epicvibe.Creator{ID: creator, Username: "u-" + creator, WalletAddress: "W-" + creator},
		Type:      "Racing",
		Style:     "Cyberpunk",
		CreatedAt: base.Add(-age),
		UpdatedAt: base.Add(-age),
		Stats:     epicvibe.Stats{Plays: plays, Likes: likes, Shares: shares, TokensEarned: decimal.Zero},
	}
}

func titles(games []epicvibe.Game) []string {
	out := make([]string, len(games))
	for i, g := range games {
		out[i] = g.Title
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQueryTrendingTiesKeepInsertionOrder(t *testing.T) {
	a := newGame("A", "u1", 10, 0, 0, 0)
	b := newGame("B", "u1", 0, 5, 0, 0)

	got, _ := query([]epicvibe.Game{a, b}, ListOptions{Sort: SortTrending})
	if want := []string{"A", "B"}; !equal(titles(got), want) {
		t.Errorf("order = %v, want %v", titles(got), want)
	}

	got, _ = query([]epicvibe.Game{b, a}, ListOptions{Sort: SortTrending})
	if want := []string{"B", "A"}; !equal(titles(got), want) {
		t.Errorf("order = %v, want %v", titles(got), want)
	}
}

func TestQuerySorts(t *testing.T) {
	games := []epicvibe.Game{
		newGame("old-popular", "u1", 100, 0, 0, 72*time.Hour),
		newGame("new-quiet", "u1", 1, 0, 0, 0),
		newGame("mid-shared", "u1", 10, 10, 30, 24*time.Hour),
	}

	tests := []struct {
		sort SortOrder
		want []string
	}{
		{SortRecent, []string{"new-quiet", "mid-shared", "old-popular"}},
		{SortPopular, []string{"old-popular", "mid-shared", "new-quiet"}},
		{SortTrending, []string{"mid-shared", "old-popular", "new-quiet"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			got, total := query(games, ListOptions{Sort: tt.sort})
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
			if !equal(titles(got), tt.want) {
				t.Errorf("order = %v, want %v", titles(got), tt.want)
			}
		})
	}
}

func TestQueryFilterAndPaginate(t *testing.T) {
	var games []epicvibe.Game
	for i := range 5 {
		g := newGame(string(rune('a'+i)), "u1", 0, 0, 0, time.Duration(i)*time.Hour)
		if i%2 == 1 {
			g.Type = "Puzzle"
			g.Creator = epicvibe.Creator{ID: "u2", Username: "bob"}
		}
		games = append(games, g)
	}

	page, total := query(games, ListOptions{Filter: Filter{Type: "Racing"}, Limit: 2})
	if total != 3 || !equal(titles(page), []string{"a", "c"}) {
		t.Errorf("got %v total %d", titles(page), total)
	}

	page, total = query(games, ListOptions{Filter: Filter{Creator: "bob"}})
	if total != 2 || !equal(titles(page), []string{"b", "d"}) {
		t.Errorf("creator by username: got %v total %d", titles(page), total)
	}

	page, total = query(games, ListOptions{Offset: 4, Limit: 10})
	if total != 5 || !equal(titles(page), []string{"e"}) {
		t.Errorf("offset page: got %v total %d", titles(page), total)
	}

	page, _ = query(games, ListOptions{Offset: 50, Limit: 10})
	if len(page) != 0 {
		t.Errorf("offset past end: got %v", titles(page))
	}
}

func TestParseSort(t *testing.T) {
	for in, want := range map[string]SortOrder{"": SortRecent, "recent": SortRecent, "popular": SortPopular, "trending": SortTrending} {
		got, ok := ParseSort(in)
		if !ok || got != want {
			t.Errorf("ParseSort(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseSort("random"); ok {
		t.Error("ParseSort(random) should fail")
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	g := newGame("a", "u1", 0, 0, 0, 0)
	g.Assets = &epicvibe.Assets{Levels: []string{"level-1"}}
	g.Mechanics = []epicvibe.Mechanic{{Name: "drift"}}
	g.Code = &epicvibe.CodeDescriptor{Files: []string{"index.html"}}
	id, _ := s.Insert(ctx, g)
	g.Assets.Levels[0] = "changed by caller"

	got, _ := s.Get(ctx, id)
	got.Assets.Levels[0] = "x"
	got.Mechanics[0].Name = "x"
	got.Code.Files[0] = "x"
	page, _, _ := s.List(ctx, ListOptions{})
	page[0].Assets.Levels[0] = "y"

	again, _ := s.Get(ctx, id)
	if again.Assets.Levels[0] != "level-1" || again.Mechanics[0].Name != "drift" || again.Code.Files[0] != "index.html" {
		t.Errorf("stored game changed through a returned copy: %+v %+v %+v", again.Assets, again.Mechanics, again.Code)
	}
}

func TestSQLStore(t *testing.T) {
	testStore(t, func(t *testing.T) Store {
		ctx := context.Background()
		db, err := database.Open(ctx, ":memory:")
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		if _, err := migrations.Run(ctx, db); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return NewSQLStore(db)
	})
}

// A file database gives every pooled connection its own SQLite handle, so
// writers really contend for the lock.
func TestSQLStoreFile(t *testing.T) {
	dir := t.TempDir()
	n := 0
	testStore(t, func(t *testing.T) Store {
		ctx := context.Background()
		n++
		db, err := database.Open(ctx, filepath.Join(dir, "games"+strconv.Itoa(n)+".db"))
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		if _, err := migrations.Run(ctx, db); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return NewSQLStore(db)
	})
}

func TestGormStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	testStore(t, func(t *testing.T) Store {
		ctx := context.Background()
		db, err := database.OpenPostgres(ctx, dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		if err := db.Migrator().DropTable(&gameRecord{}); err != nil {
			t.Fatalf("drop table: %v", err)
		}
		s, err := NewGormStore(ctx, db)
		if err != nil {
			t.Fatalf("init gorm store: %v", err)
		}
		return s
	})
}

func testStore(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("insert assigns sequential ids", func(t *testing.T) {
		s := open(t)
		for i, want := range []string{"game_1", "game_2", "game_3"} {
			id, err := s.Insert(ctx, newGame("g", "u1", 0, 0, 0, time.Duration(i)))
			if err != nil {
				t.Fatalf("insert: %v", err)
			}
			if id != want {
				t.Errorf("id = %q, want %q", id, want)
			}
		}
		g, err := s.Get(ctx, "game_2")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if g.ID != "game_2" || g.Creator.WalletAddress != "W-u1" {
			t.Errorf("unexpected game %+v", g)
		}
	})

	t.Run("ids are not reused after remove", func(t *testing.T) {
		s := open(t)
		s.Insert(ctx, newGame("a", "u1", 0, 0, 0, 0))
		id, _ := s.Insert(ctx, newGame("b", "u1", 0, 0, 0, 0))
		if _, err := s.Remove(ctx, id, "u1"); err != nil {
			t.Fatalf("remove: %v", err)
		}
		next, _ := s.Insert(ctx, newGame("c", "u1", 0, 0, 0, 0))
		if next == id {
			t.Errorf("id %q reused", next)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		s := open(t)
		if _, err := s.Get(ctx, "game_404"); !errors.Is(err, epicvibe.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("update by non-creator is forbidden", func(t *testing.T) {
		s := open(t)
		id, _ := s.Insert(ctx, newGame("original", "u1", 0, 0, 0, 0))
		title := "hijacked"

		_, err := s.Update(ctx, id, Patch{Title: &title}, "u2")
		if !errors.Is(err, epicvibe.ErrForbidden) {
			t.Fatalf("err = %v, want ErrForbidden", err)
		}
		g, _ := s.Get(ctx, id)
		if g.Title != "original" {
			t.Errorf("title = %q, record was modified", g.Title)
		}
	})

	t.Run("update by creator", func(t *testing.T) {
		s := open(t)
		id, _ := s.Insert(ctx, newGame("original", "u1", 0, 0, 0, 0))
		title, empty := "renamed", ""

		g, err := s.Update(ctx, id, Patch{Title: &title, Description: &empty}, "u1")
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if g.Title != "renamed" {
			t.Errorf("title = %q", g.Title)
		}
		if !g.UpdatedAt.After(base) {
			t.Errorf("updatedAt not bumped: %v", g.UpdatedAt)
		}
	})

	t.Run("update unknown", func(t *testing.T) {
		s := open(t)
		title := "x"
		if _, err := s.Update(ctx, "game_9", Patch{Title: &title}, "u1"); !errors.Is(err, epicvibe.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("remove unknown leaves catalog unchanged", func(t *testing.T) {
		s := open(t)
		s.Insert(ctx, newGame("a", "u1", 0, 0, 0, 0))

		if _, err := s.Remove(ctx, "game_99", "u1"); !errors.Is(err, epicvibe.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
		if n, _ := s.Count(ctx); n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	})

	t.Run("remove by non-creator is forbidden", func(t *testing.T) {
		s := open(t)
		id, _ := s.Insert(ctx, newGame("a", "u1", 0, 0, 0, 0))

		if _, err := s.Remove(ctx, id, "u2"); !errors.Is(err, epicvibe.ErrForbidden) {
			t.Fatalf("err = %v, want ErrForbidden", err)
		}
		if n, _ := s.Count(ctx); n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	})

	t.Run("remove returns the removed game", func(t *testing.T) {
		s := open(t)
		id, _ := s.Insert(ctx, newGame("doomed", "u1", 0, 0, 0, 0))

		g, err := s.Remove(ctx, id, "u1")
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if g.Title != "doomed" {
			t.Errorf("removed title = %q", g.Title)
		}
		if _, err := s.Get(ctx, id); !errors.Is(err, epicvibe.ErrNotFound) {
			t.Errorf("get after remove: %v", err)
		}
	})

	t.Run("modify error writes nothing", func(t *testing.T) {
		s := open(t)
		id, _ := s.Insert(ctx, newGame("a", "u1", 0, 0, 0, 0))
		boom := errors.New("boom")

		_, err := s.Modify(ctx, id, func(g *epicvibe.Game) error {
			g.Stats.Plays = 99
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
		g, _ := s.Get(ctx, id)
		if g.Stats.Plays != 0 {
			t.Errorf("plays = %d, want 0", g.Stats.Plays)
		}
	})

	t.Run("concurrent modify serializes", func(t *testing.T) {
		s := open(t)
		id, _ := s.Insert(ctx, newGame("a", "u1", 0, 0, 0, 0))

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			failures []error
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Modify(ctx, id, func(g *epicvibe.Game) error {
					g.Stats.Plays++
					return nil
				})
				if err != nil {
					mu.Lock()
					failures = append(failures, err)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if len(failures) > 0 {
			t.Errorf("%d modifies failed, first: %v", len(failures), failures[0])
		}
		g, _ := s.Get(ctx, id)
		if g.Stats.Plays != 20 {
			t.Errorf("plays = %d, want 20", g.Stats.Plays)
		}
	})

	t.Run("concurrent inserts get distinct ids", func(t *testing.T) {
		s := open(t)

		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids = map[string]bool{}
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := s.Insert(ctx, newGame("g", "u1", 0, 0, 0, 0))
				if err != nil {
					t.Errorf("insert: %v", err)
					return
				}
				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}()
		}
		wg.Wait()

		if len(ids) != 10 {
			t.Errorf("distinct ids = %d, want 10", len(ids))
		}
	})

	t.Run("list sorts and filters", func(t *testing.T) {
		s := open(t)
		s.Insert(ctx, newGame("A", "u1", 10, 0, 0, 2*time.Hour))
		s.Insert(ctx, newGame("B", "u2", 0, 5, 0, time.Hour))
		s.Insert(ctx, newGame("C", "u2", 0, 0, 0, 0))

		page, total, err := s.List(ctx, ListOptions{Sort: SortTrending})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 3 || !equal(titles(page), []string{"A", "B", "C"}) {
			t.Errorf("trending = %v (total %d)", titles(page), total)
		}

		page, total, _ = s.List(ctx, ListOptions{Filter: Filter{Creator: "u2"}, Sort: SortRecent})
		if total != 2 || !equal(titles(page), []string{"C", "B"}) {
			t.Errorf("creator u2 = %v (total %d)", titles(page), total)
		}
	})
}
