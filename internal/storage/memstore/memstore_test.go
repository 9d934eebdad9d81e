package memstore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
	"github.com/galynx-chat/galynx-server/internal/storage/memstore"
)

func mustV7(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("uuid.NewV7: %v", err)
	}
	return id
}

func seedMessages(t *testing.T, store *memstore.Store, channelID uuid.UUID, n int) []storage.Message {
	t.Helper()
	ctx := context.Background()
	msgs := make([]storage.Message, 0, n)
	for i := 0; i < n; i++ {
		m := storage.Message{
			ID:        mustV7(t),
			ChannelID: channelID,
			SenderID:  mustV7(t),
			BodyMD:    "hello",
			CreatedAt: uint64(1000 + i),
		}
		if _, err := store.CreateMessage(ctx, m); err != nil {
			t.Fatalf("create message %d: %v", i, err)
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func TestListChannelMessages_PaginationTotalOrdering(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	channelID := mustV7(t)
	ctx := context.Background()

	inserted := seedMessages(t, store, channelID, 150)

	var got []storage.Message
	var cursor *storage.Cursor
	for page := 0; page < 3; page++ {
		p, err := store.ListChannelMessages(ctx, channelID, cursor, 50)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(p.Items) != 50 {
			t.Fatalf("page %d: got %d items, want 50", page, len(p.Items))
		}
		got = append(got, p.Items...)
		cursor = p.NextCursor
	}

	// Concatenation equals the newest-first sorted list.
	if len(got) != len(inserted) {
		t.Fatalf("got %d items across pages, want %d", len(got), len(inserted))
	}
	for i, m := range got {
		want := inserted[len(inserted)-1-i]
		if m.ID != want.ID {
			t.Fatalf("position %d: got message %s, want %s", i, m.ID, want.ID)
		}
	}

	// The final page was full but nothing older exists, so the probe must
	// have withheld the cursor.
	if cursor != nil {
		t.Fatalf("final page NextCursor = %v, want nil", cursor)
	}

	// Paging past the end is empty, not an error.
	last := got[len(got)-1]
	p, err := store.ListChannelMessages(ctx, channelID, &storage.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, 50)
	if err != nil {
		t.Fatalf("past-the-end page: %v", err)
	}
	if len(p.Items) != 0 || p.NextCursor != nil {
		t.Fatalf("past-the-end page: got %d items, cursor %v; want 0 items, nil cursor", len(p.Items), p.NextCursor)
	}
}

func TestListChannelMessages_CursorExcludesItemsAtOrAfterCursor(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	channelID := mustV7(t)
	ctx := context.Background()

	msgs := seedMessages(t, store, channelID, 10)
	pivot := msgs[5]

	p, err := store.ListChannelMessages(ctx, channelID, &storage.Cursor{CreatedAt: pivot.CreatedAt, ID: pivot.ID}, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, m := range p.Items {
		c := storage.Cursor{CreatedAt: pivot.CreatedAt, ID: pivot.ID}
		if !c.Before(m.CreatedAt, m.ID) {
			t.Fatalf("item %s (created_at=%d) is not strictly older than cursor %v", m.ID, m.CreatedAt, c)
		}
	}
	if len(p.Items) != 5 {
		t.Fatalf("got %d items older than pivot, want 5", len(p.Items))
	}
}

func TestListChannelMessages_TiesBrokenByID(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	channelID := mustV7(t)
	ctx := context.Background()

	// Same created_at for every message forces the id tie-break.
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id := mustV7(t)
		ids = append(ids, id)
		if _, err := store.CreateMessage(ctx, storage.Message{ID: id, ChannelID: channelID, SenderID: id, BodyMD: "x", CreatedAt: 777}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	p, err := store.ListChannelMessages(ctx, channelID, nil, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(p.Items) != 2 || p.NextCursor == nil {
		t.Fatalf("got %d items, cursor %v; want 2 items and a cursor", len(p.Items), p.NextCursor)
	}

	rest, err := store.ListChannelMessages(ctx, channelID, p.NextCursor, 50)
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest.Items) != 3 {
		t.Fatalf("got %d remaining items, want 3", len(rest.Items))
	}

	seen := make(map[uuid.UUID]struct{})
	for _, m := range append(p.Items, rest.Items...) {
		if _, dup := seen[m.ID]; dup {
			t.Fatalf("message %s appeared on two pages", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	if len(seen) != len(ids) {
		t.Fatalf("pages covered %d of %d messages", len(seen), len(ids))
	}
}

func TestSoftDelete_RedactsBodyOnRead(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	channelID := mustV7(t)
	ctx := context.Background()

	m := seedMessages(t, store, channelID, 1)[0]

	if _, err := store.SoftDeleteMessage(ctx, m.ID, 2000); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	got, err := store.GetMessageByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DeletedAt == nil || *got.DeletedAt != 2000 {
		t.Fatalf("DeletedAt = %v, want 2000", got.DeletedAt)
	}
	if got.BodyMD != "" {
		t.Fatalf("BodyMD = %q, want empty", got.BodyMD)
	}

	// Soft-deleted messages still appear in listings, body empty.
	p, err := store.ListChannelMessages(ctx, channelID, nil, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(p.Items) != 1 || p.Items[0].BodyMD != "" {
		t.Fatalf("listing after delete: %d items, body %q; want 1 item with empty body", len(p.Items), p.Items[0].BodyMD)
	}
}

func TestCreateMessage_ThreadRootMustBeTopLevelSameChannel(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	channelID := mustV7(t)
	ctx := context.Background()

	root := seedMessages(t, store, channelID, 1)[0]

	reply := storage.Message{ID: mustV7(t), ChannelID: channelID, SenderID: mustV7(t), BodyMD: "re", ThreadRootID: &root.ID, CreatedAt: 2000}
	if _, err := store.CreateMessage(ctx, reply); err != nil {
		t.Fatalf("reply to top-level root: %v", err)
	}

	// Replying to a reply is rejected: thread roots are always top-level.
	nested := storage.Message{ID: mustV7(t), ChannelID: channelID, SenderID: mustV7(t), BodyMD: "re re", ThreadRootID: &reply.ID, CreatedAt: 3000}
	if _, err := store.CreateMessage(ctx, nested); err != storage.ErrNotFound {
		t.Fatalf("reply-to-reply: err = %v, want ErrNotFound", err)
	}

	// A root in another channel is rejected.
	other := storage.Message{ID: mustV7(t), ChannelID: mustV7(t), SenderID: mustV7(t), BodyMD: "elsewhere", ThreadRootID: &root.ID, CreatedAt: 4000}
	if _, err := store.CreateMessage(ctx, other); err != storage.ErrNotFound {
		t.Fatalf("cross-channel reply: err = %v, want ErrNotFound", err)
	}
}

func TestGetThreadSummary_DeletedRepliesCountedButNotParticipants(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	channelID := mustV7(t)
	ctx := context.Background()

	root := seedMessages(t, store, channelID, 1)[0]

	alice, bob := mustV7(t), mustV7(t)
	r1 := storage.Message{ID: mustV7(t), ChannelID: channelID, SenderID: alice, BodyMD: "a", ThreadRootID: &root.ID, CreatedAt: 2000}
	r2 := storage.Message{ID: mustV7(t), ChannelID: channelID, SenderID: bob, BodyMD: "b", ThreadRootID: &root.ID, CreatedAt: 3000}
	for _, r := range []storage.Message{r1, r2} {
		if _, err := store.CreateMessage(ctx, r); err != nil {
			t.Fatalf("create reply: %v", err)
		}
	}
	if _, err := store.SoftDeleteMessage(ctx, r2.ID, 4000); err != nil {
		t.Fatalf("soft delete reply: %v", err)
	}

	sum, err := store.GetThreadSummary(ctx, root.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.ReplyCount != 2 {
		t.Fatalf("ReplyCount = %d, want 2", sum.ReplyCount)
	}
	if len(sum.Participants) != 1 || sum.Participants[0] != alice {
		t.Fatalf("Participants = %v, want [%s]", sum.Participants, alice)
	}
	if sum.LastReplyAt == nil || *sum.LastReplyAt != 3000 {
		t.Fatalf("LastReplyAt = %v, want 3000", sum.LastReplyAt)
	}
}

func TestUniqueIndexes(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	ctx := context.Background()

	wsID := mustV7(t)

	u := storage.User{ID: mustV7(t), Email: "dup@example.com", Name: "First", CreatedAt: 1}
	if _, err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	// Case-insensitive email uniqueness.
	if _, err := store.CreateUser(ctx, storage.User{ID: mustV7(t), Email: "DUP@example.com", Name: "Second", CreatedAt: 2}); err != storage.ErrUniqueViolation {
		t.Fatalf("duplicate email: err = %v, want ErrUniqueViolation", err)
	}

	ch := storage.Channel{ID: mustV7(t), WorkspaceID: wsID, Name: "general", CreatedAt: 1}
	if _, err := store.CreateChannel(ctx, ch); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if _, err := store.CreateChannel(ctx, storage.Channel{ID: mustV7(t), WorkspaceID: wsID, Name: "general", CreatedAt: 2}); err != storage.ErrUniqueViolation {
		t.Fatalf("duplicate channel name: err = %v, want ErrUniqueViolation", err)
	}
	// Same name in a different workspace is fine.
	if _, err := store.CreateChannel(ctx, storage.Channel{ID: mustV7(t), WorkspaceID: mustV7(t), Name: "general", CreatedAt: 3}); err != nil {
		t.Fatalf("same name, other workspace: %v", err)
	}

	m := storage.WorkspaceMember{WorkspaceID: wsID, UserID: u.ID, Role: storage.RoleMember, CreatedAt: 1}
	if _, err := store.CreateMembership(ctx, m); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	if _, err := store.CreateMembership(ctx, m); err != storage.ErrUniqueViolation {
		t.Fatalf("duplicate membership: err = %v, want ErrUniqueViolation", err)
	}
}

func TestReactions_UniqueAndIdempotent(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	ctx := context.Background()

	msgID, userID := mustV7(t), mustV7(t)
	r := storage.Reaction{MessageID: msgID, Emoji: "👍", UserID: userID, CreatedAt: 1}

	added, err := store.AddReaction(ctx, r)
	if err != nil || !added {
		t.Fatalf("first add: added=%v err=%v, want true,nil", added, err)
	}
	added, err = store.AddReaction(ctx, r)
	if err != nil || added {
		t.Fatalf("second add: added=%v err=%v, want false,nil", added, err)
	}

	counts, err := store.CountReactions(ctx, msgID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["👍"] != 1 {
		t.Fatalf("count[👍] = %d, want 1", counts["👍"])
	}

	removed, err := store.RemoveReaction(ctx, msgID, "👍", userID)
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v, want true,nil", removed, err)
	}
	// Missing row is success, not an error.
	removed, err = store.RemoveReaction(ctx, msgID, "👍", userID)
	if err != nil || removed {
		t.Fatalf("second remove: removed=%v err=%v, want false,nil", removed, err)
	}
}

func TestPendingUploads_ExpiryAndPurge(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	ctx := context.Background()

	live := storage.PendingUpload{UploadID: mustV7(t), ExpiresAt: 900_000}
	expired := storage.PendingUpload{UploadID: mustV7(t), ExpiresAt: 100_000}
	for _, p := range []storage.PendingUpload{live, expired} {
		if _, err := store.CreatePendingUpload(ctx, p); err != nil {
			t.Fatalf("create pending: %v", err)
		}
	}

	// Consuming past expiry is a NotFound, and the record is gone for good.
	if _, err := store.ConsumePendingUpload(ctx, expired.UploadID, 200_000); err != storage.ErrNotFound {
		t.Fatalf("consume expired: err = %v, want ErrNotFound", err)
	}

	// A live upload consumes exactly once.
	if _, err := store.ConsumePendingUpload(ctx, live.UploadID, 200_000); err != nil {
		t.Fatalf("consume live: %v", err)
	}
	if _, err := store.ConsumePendingUpload(ctx, live.UploadID, 200_000); err != storage.ErrNotFound {
		t.Fatalf("double consume: err = %v, want ErrNotFound", err)
	}

	again := storage.PendingUpload{UploadID: mustV7(t), ExpiresAt: 100_000}
	if _, err := store.CreatePendingUpload(ctx, again); err != nil {
		t.Fatalf("create pending: %v", err)
	}
	n, err := store.PurgeExpiredUploads(ctx, 200_000)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
}

func TestRevokeChain_RevokesEveryLink(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	ctx := context.Background()

	userID, wsID := mustV7(t), mustV7(t)

	// s1 <- s2 <- s3, linked by rotated_from.
	s1 := storage.RefreshSession{ID: mustV7(t), UserID: userID, WorkspaceID: wsID, TokenHash: "h1", IssuedAt: 1, ExpiresAt: 9_000_000}
	s2 := storage.RefreshSession{ID: mustV7(t), UserID: userID, WorkspaceID: wsID, TokenHash: "h2", IssuedAt: 2, ExpiresAt: 9_000_000, RotatedFrom: &s1.ID}
	s3 := storage.RefreshSession{ID: mustV7(t), UserID: userID, WorkspaceID: wsID, TokenHash: "h3", IssuedAt: 3, ExpiresAt: 9_000_000, RotatedFrom: &s2.ID}
	for _, rs := range []storage.RefreshSession{s1, s2, s3} {
		if _, err := store.CreateRefreshSession(ctx, rs); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	// Reuse detected at the middle link still fells the whole chain.
	if err := store.RevokeChain(ctx, s2.ID, 4000); err != nil {
		t.Fatalf("revoke chain: %v", err)
	}

	for _, hash := range []string{"h1", "h2", "h3"} {
		rs, err := store.GetRefreshSessionByHash(ctx, hash)
		if err != nil {
			t.Fatalf("get %s: %v", hash, err)
		}
		if rs.RevokedAt == nil {
			t.Fatalf("session %s not revoked", hash)
		}
	}
}

func TestIdempotency_RoundTrip(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	ctx := context.Background()

	key := storage.IdempotencyKey{
		WorkspaceID: mustV7(t),
		UserID:      mustV7(t),
		ChannelID:   mustV7(t),
		Command:     "SEND_MESSAGE",
		ClientMsgID: "c-1",
	}

	if _, ok, err := store.GetIdempotent(ctx, key); err != nil || ok {
		t.Fatalf("get before put: ok=%v err=%v, want false,nil", ok, err)
	}

	rec := storage.IdempotencyRecord{Key: key, Result: []byte(`{"message_id":"m"}`), StoredAt: 1000}
	if err := store.PutIdempotent(ctx, rec, 300_000); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.GetIdempotent(ctx, key)
	if err != nil || !ok {
		t.Fatalf("get after put: ok=%v err=%v, want true,nil", ok, err)
	}
	if string(got.Result) != string(rec.Result) {
		t.Fatalf("Result = %s, want %s", got.Result, rec.Result)
	}

	if n := store.Sweep(400_000); n != 1 {
		t.Fatalf("sweep purged %d, want 1", n)
	}
	if _, ok, _ := store.GetIdempotent(ctx, key); ok {
		t.Fatalf("record survived sweep past TTL")
	}
}
