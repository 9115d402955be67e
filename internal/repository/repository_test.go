package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/ids"
	"github.com/campusconnect/campus/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newGen(t *testing.T) ids.Generator {
	t.Helper()
	gen, err := ids.New(ids.StrategyULID)
	if err != nil {
		t.Fatal(err)
	}
	return gen
}

func createAccount(t *testing.T, repo *GormAccountRepository, email, username string) *domain.Profile {
	t.Helper()
	profile := &domain.Profile{Username: username}
	if err := repo.Create(context.Background(), &domain.Account{Email: email, PasswordHash: "x"}, profile); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return profile
}

func TestAccountCreateCreatesProfile(t *testing.T) {
	db := newTestDB(t)
	accounts := NewGormAccountRepository(db)
	profiles := NewGormProfileRepository(db)
	ctx := context.Background()

	account := &domain.Account{Email: " Alice@Example.com ", PasswordHash: "hash"}
	profile := &domain.Profile{Username: "alice"}
	if err := accounts.Create(ctx, account, profile); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if account.ID == "" || profile.ID != account.ID {
		t.Fatalf("ids not shared: account=%q profile=%q", account.ID, profile.ID)
	}

	got, err := profiles.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("username = %q, want alice", got.Username)
	}

	byEmail, err := accounts.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != account.ID {
		t.Errorf("GetByEmail id = %q, want %q", byEmail.ID, account.ID)
	}
}

func TestAccountDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	accounts := NewGormAccountRepository(db)
	createAccount(t, accounts, "dup@example.com", "one")

	err := accounts.Create(context.Background(), &domain.Account{Email: "dup@example.com", PasswordHash: "x"}, &domain.Profile{Username: "two"})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("err = %v, want ErrEmailExists", err)
	}
}

func TestProfileUpdateIsFullRecord(t *testing.T) {
	db := newTestDB(t)
	accounts := NewGormAccountRepository(db)
	profiles := NewGormProfileRepository(db)
	ctx := context.Background()

	p := createAccount(t, accounts, "bob@example.com", "bob")
	if _, err := profiles.Update(ctx, p.ID, "bobby", "MIT"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := profiles.Update(ctx, p.ID, "", "")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Username != "" || got.College != "" {
		t.Errorf("empty values not written: %+v", got)
	}

	account, err := accounts.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if account.Email != "bob@example.com" {
		t.Errorf("email changed to %q", account.Email)
	}
}

func TestProfileUpdateMissing(t *testing.T) {
	profiles := NewGormProfileRepository(newTestDB(t))
	_, err := profiles.Update(context.Background(), "missing", "a", "b")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestThreadsOrderedByTitleAndEnsureIdempotent(t *testing.T) {
	threads := NewGormThreadRepository(newTestDB(t), newGen(t))
	ctx := context.Background()

	for _, title := range []string{"Sports", "Academics", "Housing"} {
		if _, created, err := threads.EnsureTitle(ctx, title); err != nil || !created {
			t.Fatalf("EnsureTitle(%q) = created %v, err %v", title, created, err)
		}
	}
	first, created, err := threads.EnsureTitle(ctx, "Academics")
	if err != nil || created {
		t.Fatalf("second EnsureTitle = created %v, err %v", created, err)
	}

	list, err := threads.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	want := []string{"Academics", "Housing", "Sports"}
	for i, th := range list {
		if th.Title != want[i] {
			t.Errorf("list[%d] = %q, want %q", i, th.Title, want[i])
		}
	}
	if list[0].ID != first.ID {
		t.Errorf("EnsureTitle returned id %q, stored %q", first.ID, list[0].ID)
	}
}

func TestPostsFilterOrderAndAuthorJoin(t *testing.T) {
	db := newTestDB(t)
	gen := newGen(t)
	accounts := NewGormAccountRepository(db)
	threads := NewGormThreadRepository(db, gen)
	posts := NewGormPostRepository(db, gen)
	ctx := context.Background()

	author := createAccount(t, accounts, "carol@example.com", "carol")
	a, _, _ := threads.EnsureTitle(ctx, "A")
	b, _, _ := threads.EnsureTitle(ctx, "B")

	for i, threadID := range []string{a.ID, b.ID, a.ID} {
		p := &domain.Post{AuthorID: author.ID, ThreadID: threadID, Content: fmt.Sprintf("post %d", i)}
		if err := posts.Create(ctx, p); err != nil {
			t.Fatalf("Create: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	all, err := posts.List(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].Content != "post 2" || all[2].Content != "post 0" {
		t.Errorf("not newest first: %q .. %q", all[0].Content, all[2].Content)
	}
	if all[0].Author == nil || all[0].Author.Username != "carol" {
		t.Errorf("author not joined: %+v", all[0].Author)
	}

	onlyA, err := posts.List(ctx, &a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("len(onlyA) = %d, want 2", len(onlyA))
	}
	for _, p := range onlyA {
		if p.ThreadID != a.ID {
			t.Errorf("post %s from thread %s leaked into filter", p.ID, p.ThreadID)
		}
	}
}

func TestPostGetByIDMissing(t *testing.T) {
	posts := NewGormPostRepository(newTestDB(t), newGen(t))
	if _, err := posts.GetByID(context.Background(), "nope"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
}

func TestCommentsAscending(t *testing.T) {
	db := newTestDB(t)
	gen := newGen(t)
	accounts := NewGormAccountRepository(db)
	threads := NewGormThreadRepository(db, gen)
	posts := NewGormPostRepository(db, gen)
	comments := NewGormCommentRepository(db, gen)
	ctx := context.Background()

	author := createAccount(t, accounts, "dan@example.com", "dan")
	th, _, _ := threads.EnsureTitle(ctx, "General")
	post := &domain.Post{AuthorID: author.ID, ThreadID: th.ID, Content: "hi"}
	if err := posts.Create(ctx, post); err != nil {
		t.Fatal(err)
	}

	for _, text := range []string{"first", "second"} {
		if err := comments.Create(ctx, &domain.Comment{PostID: post.ID, AuthorID: author.ID, Content: text}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := comments.ListByPost(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Content != "first" || list[1].Content != "second" {
		t.Fatalf("unexpected comments: %+v", list)
	}
	if list[0].Author == nil || list[0].Author.Username != "dan" {
		t.Errorf("author not joined")
	}
}
