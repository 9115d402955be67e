package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/avatar"
	"github.com/campusconnect/campus/internal/cache"
	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/ids"
	"github.com/campusconnect/campus/internal/repository"
	"github.com/campusconnect/campus/pkg/database"
	"github.com/campusconnect/campus/pkg/jwt"
	"github.com/campusconnect/campus/pkg/pubsub"
	"github.com/campusconnect/campus/pkg/storage"
)

type fixture struct {
	db       *gorm.DB
	gen      ids.Generator
	bus      *pubsub.MemoryPubSub
	tokens   *jwt.Manager
	accounts *repository.GormAccountRepository
	profiles *repository.GormProfileRepository
	threads  *repository.GormThreadRepository
	posts    *repository.GormPostRepository
	comments *repository.GormCommentRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close(db) })

	gen, err := ids.New(ids.StrategyULID)
	if err != nil {
		t.Fatal(err)
	}

	tokens, err := jwt.NewManager(jwt.Options{
		AccessDuration:  time.Minute,
		RefreshDuration: time.Hour,
		Issuer:          "test",
	})
	if err != nil {
		t.Fatal(err)
	}

	bus := pubsub.NewMemoryPubSub()
	t.Cleanup(func() { bus.Close() })

	return &fixture{
		db:       db,
		gen:      gen,
		bus:      bus,
		tokens:   tokens,
		accounts: repository.NewGormAccountRepository(db),
		profiles: repository.NewGormProfileRepository(db),
		threads:  repository.NewGormThreadRepository(db, gen),
		posts:    repository.NewGormPostRepository(db, gen),
		comments: repository.NewGormCommentRepository(db, gen),
	}
}

func (f *fixture) auth() AuthService {
	return NewAuthService(f.accounts, f.profiles, f.tokens, f.bus, bcrypt.MinCost)
}

func (f *fixture) feed() FeedService {
	return NewFeedService(f.threads, f.posts, f.comments, f.bus)
}

func (f *fixture) signup(t *testing.T, email, username string) *domain.AuthResponse {
	t.Helper()
	resp, err := f.auth().Signup(context.Background(), &domain.SignupRequest{
		Email:    email,
		Password: "secret123",
		Username: username,
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	return resp
}

func receive(t *testing.T, ch <-chan *pubsub.Event) *pubsub.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return nil
	}
}

// countingAccounts fails the test if any store work happens.
type countingAccounts struct {
	repository.AccountRepository
	calls int
}

func (c *countingAccounts) Create(context.Context, *domain.Account, *domain.Profile) error {
	c.calls++
	return nil
}

func TestSignupValidationPrecedesStoreWork(t *testing.T) {
	accounts := &countingAccounts{}
	svc := NewAuthService(accounts, nil, nil, pubsub.NewMemoryPubSub(), bcrypt.MinCost)

	tests := []struct {
		name string
		req  domain.SignupRequest
		want error
	}{
		{"short password", domain.SignupRequest{Email: "a@b.edu", Password: "12345", Username: "a"}, ErrPasswordTooShort},
		{"bad email", domain.SignupRequest{Email: "not-an-email", Password: "123456", Username: "a"}, ErrInvalidEmail},
		{"display name email", domain.SignupRequest{Email: "Ada <ada@b.edu>", Password: "123456", Username: "a"}, ErrInvalidEmail},
		{"empty email", domain.SignupRequest{Email: "  ", Password: "123456", Username: "a"}, ErrInvalidEmail},
		{"blank username", domain.SignupRequest{Email: "a@b.edu", Password: "123456", Username: "  "}, ErrUsernameRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), &tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if accounts.calls != 0 {
		t.Fatalf("store was called %d times", accounts.calls)
	}
}

func TestSignupCreatesProfileAndPublishesSignedIn(t *testing.T) {
	f := newFixture(t)
	events, err := f.bus.Subscribe(context.Background(), pubsub.ChannelAuth)
	if err != nil {
		t.Fatal(err)
	}

	resp := f.signup(t, "erin@uni.edu", "erin")
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("tokens missing")
	}

	profile, err := f.profiles.GetByID(context.Background(), resp.User.ID)
	if err != nil {
		t.Fatalf("profile not created: %v", err)
	}
	if profile.Username != "erin" {
		t.Errorf("username = %q", profile.Username)
	}

	ev := receive(t, events)
	if ev.Type != pubsub.EventSignedIn || ev.Key != resp.User.ID {
		t.Errorf("event = %+v", ev)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "fay@uni.edu", "fay")

	_, err := f.auth().Login(context.Background(), &domain.LoginRequest{Email: "fay@uni.edu", Password: "wrong-password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	_, err = f.auth().Login(context.Background(), &domain.LoginRequest{Email: "nobody@uni.edu", Password: "secret123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogoutRevokesOnlyThatSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.signup(t, "gus@uni.edu", "gus")

	claims, err := f.tokens.ValidateAccessToken(ctx, first.AccessToken)
	if err != nil {
		t.Fatal(err)
	}

	events, _ := f.bus.Subscribe(ctx, pubsub.ChannelAuth)
	if err := f.auth().Logout(ctx, claims.UserID, claims.SessionID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if ev := receive(t, events); ev.Type != pubsub.EventSignedOut {
		t.Errorf("event type = %q", ev.Type)
	}

	if _, err := f.tokens.ValidateAccessToken(ctx, first.AccessToken); !errors.Is(err, jwt.ErrRevokedToken) {
		t.Fatalf("access token still valid after logout: %v", err)
	}
	if _, err := f.auth().Refresh(ctx, &domain.RefreshTokenRequest{RefreshToken: first.RefreshToken}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("refresh after logout err = %v", err)
	}

	second, err := f.auth().Login(ctx, &domain.LoginRequest{Email: "gus@uni.edu", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login after logout: %v", err)
	}
	if _, err := f.tokens.ValidateAccessToken(ctx, second.AccessToken); err != nil {
		t.Fatalf("new session rejected: %v", err)
	}
}

func TestSessionReflectsProfileUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.signup(t, "hal@uni.edu", "hal")

	if _, err := f.profiles.Update(ctx, resp.User.ID, "hal9000", ""); err != nil {
		t.Fatal(err)
	}
	user, err := f.auth().Session(ctx, resp.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if user.Username != "hal9000" || user.Email != "hal@uni.edu" {
		t.Errorf("session user = %+v", user)
	}
}

func TestUpdateProfileInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.signup(t, "ivy@uni.edu", "ivy")

	profileCache := cache.NewMemoryProfileCache()
	svc := NewProfileService(f.profiles, profileCache, time.Minute, nil, f.gen)

	if _, err := svc.GetProfile(ctx, resp.User.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := profileCache.Get(ctx, resp.User.ID); err != nil {
		t.Fatalf("profile not cached: %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, resp.User.ID, &domain.UpdateProfileRequest{Username: "ivy2", College: "Stanford"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Username != "ivy2" || updated.College != "Stanford" {
		t.Errorf("updated = %+v", updated)
	}
	if _, err := profileCache.Get(ctx, resp.User.ID); !errors.Is(err, cache.ErrCacheMiss) {
		t.Fatal("cache not invalidated")
	}

	got, err := svc.GetProfile(ctx, resp.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.College != "Stanford" {
		t.Errorf("GetProfile after update = %+v", got)
	}

	account, _ := f.accounts.GetByID(ctx, resp.User.ID)
	if account.Email != "ivy@uni.edu" {
		t.Errorf("email changed to %q", account.Email)
	}
}

func TestUploadAvatarWritesURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.signup(t, "jo@uni.edu", "jo")

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()}, "/media")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewProfileService(f.profiles, nil, time.Minute, avatar.NewProcessor(store, avatar.Config{Size: 32}), f.gen)

	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 60)))

	profile, err := svc.UploadAvatar(ctx, resp.User.ID, &buf)
	if err != nil {
		t.Fatalf("UploadAvatar: %v", err)
	}
	if !strings.HasPrefix(profile.AvatarURL, "/media/avatars/"+resp.User.ID+"/") {
		t.Errorf("avatar url = %q", profile.AvatarURL)
	}

	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10)))
	next, err := svc.UploadAvatar(ctx, resp.User.ID, &buf)
	if err != nil {
		t.Fatalf("second UploadAvatar: %v", err)
	}
	if next.AvatarURL == profile.AvatarURL {
		t.Fatal("avatar url did not change")
	}
	oldKey := strings.TrimPrefix(profile.AvatarURL, "/media/")
	if _, err := store.Stat(ctx, oldKey); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("previous avatar kept: err = %v", err)
	}
}

func TestCreatePostValidationAndPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signup(t, "kim@uni.edu", "kim")
	feed := f.feed()

	if err := feed.SeedThreads(ctx, []string{"General", "General", " "}); err != nil {
		t.Fatal(err)
	}
	threads, _ := feed.ListThreads(ctx)
	if len(threads) != 1 {
		t.Fatalf("threads = %d, want 1", len(threads))
	}

	if _, err := feed.CreatePost(ctx, author.User.ID, &domain.CreatePostRequest{Content: "hi"}); !errors.Is(err, ErrThreadRequired) {
		t.Errorf("no thread err = %v", err)
	}
	if _, err := feed.CreatePost(ctx, author.User.ID, &domain.CreatePostRequest{ThreadID: threads[0].ID, Content: "   "}); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("blank content err = %v", err)
	}
	if _, err := feed.CreatePost(ctx, author.User.ID, &domain.CreatePostRequest{ThreadID: "missing", Content: "hi"}); !errors.Is(err, repository.ErrThreadNotFound) {
		t.Errorf("missing thread err = %v", err)
	}

	events, _ := f.bus.Subscribe(ctx, pubsub.ChannelPosts)
	post, err := feed.CreatePost(ctx, author.User.ID, &domain.CreatePostRequest{ThreadID: threads[0].ID, Content: "hello campus"})
	if err != nil {
		t.Fatal(err)
	}

	ev := receive(t, events)
	if ev.Type != pubsub.EventInsert {
		t.Errorf("event type = %q", ev.Type)
	}
	var row pubsub.PostChangePayload
	if err := ev.UnmarshalPayload(&row); err != nil || row.ID != post.ID || row.ThreadID != threads[0].ID {
		t.Errorf("payload = %+v, err %v", row, err)
	}

	posts, _ := feed.ListPosts(ctx, &threads[0].ID)
	if len(posts) != 1 || posts[0].Author == nil || posts[0].Author.Username != "kim" {
		t.Fatalf("posts = %+v", posts)
	}
}

func TestLongPostKeepsEventSmall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signup(t, "lee@uni.edu", "lee")
	feed := f.feed()

	if err := feed.SeedThreads(ctx, []string{"General"}); err != nil {
		t.Fatal(err)
	}
	threads, _ := feed.ListThreads(ctx)
	events, _ := f.bus.Subscribe(ctx, pubsub.ChannelPosts)

	long := strings.Repeat("é", MaxContentLength)
	post, err := feed.CreatePost(ctx, author.User.ID, &domain.CreatePostRequest{ThreadID: threads[0].ID, Content: long})
	if err != nil {
		t.Fatalf("post at the length cap: %v", err)
	}

	ev := receive(t, events)
	if len(ev.Payload) > 512 {
		t.Errorf("insert payload is %d bytes", len(ev.Payload))
	}
	var row pubsub.PostChangePayload
	if err := ev.UnmarshalPayload(&row); err != nil || row.ID != post.ID {
		t.Errorf("payload = %+v, err %v", row, err)
	}

	_, err = feed.CreatePost(ctx, author.User.ID, &domain.CreatePostRequest{ThreadID: threads[0].ID, Content: long + "x"})
	if !errors.Is(err, ErrContentTooLong) {
		t.Errorf("over the cap err = %v", err)
	}
	_, err = feed.CreateComment(ctx, author.User.ID, post.ID, &domain.CreateCommentRequest{Content: long + "x"})
	if !errors.Is(err, ErrContentTooLong) {
		t.Errorf("long comment err = %v", err)
	}
}

func TestCommentOnMissingPostRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signup(t, "lee@uni.edu", "lee")

	_, err := f.feed().CreateComment(ctx, author.User.ID, "missing", &domain.CreateCommentRequest{Content: "hi"})
	if !errors.Is(err, repository.ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
}
