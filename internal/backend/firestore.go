package backend

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
	"github.com/dakshkumar96/Reclaim-sub000/internal/streak"
	"github.com/dakshkumar96/Reclaim-sub000/internal/xp"
)

// firestoreClient fulfils the backend contract directly against the Firestore
// database the Reclaim backend owns. Used when the progression tier deploys
// colocated with the backend instead of going through its REST API.
type firestoreClient struct {
	client *firestore.Client
	loc    *time.Location
}

// NewFirestoreClient creates a backend client over an existing Firestore connection.
func NewFirestoreClient(client *firestore.Client, loc *time.Location) Client {
	if loc == nil {
		loc = time.UTC
	}
	return &firestoreClient{client: client, loc: loc}
}

func (c *firestoreClient) users() *firestore.CollectionRef {
	return c.client.Collection("users")
}

func (c *firestoreClient) enrollments(userID string) *firestore.CollectionRef {
	return c.users().Doc(userID).Collection("user_challenges")
}

func (c *firestoreClient) FetchProfile(ctx context.Context, userID string) (Profile, error) {
	doc, err := c.users().Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}

	var profile Profile
	if err := doc.DataTo(&profile); err != nil {
		return Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	profile.UserID = doc.Ref.ID
	if profile.Level < 1 {
		profile.Level = 1
	}
	return profile, nil
}

func (c *firestoreClient) ListChallenges(ctx context.Context) ([]challenge.Challenge, error) {
	iter := c.client.Collection("challenges").OrderBy("title", firestore.Asc).Documents(ctx)

	var challenges []challenge.Challenge
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var ch challenge.Challenge
		if err := doc.DataTo(&ch); err != nil {
			return nil, fmt.Errorf("unmarshal challenge: %w", err)
		}
		ch.ID = doc.Ref.ID
		challenges = append(challenges, ch)
	}
	return challenges, nil
}

func (c *firestoreClient) ListActiveChallenges(ctx context.Context, userID string) ([]*challenge.Enrollment, error) {
	iter := c.enrollments(userID).
		Where("state", "in", []string{string(challenge.StateActive), string(challenge.StateCheckedInToday)}).
		Documents(ctx)

	var active []*challenge.Enrollment
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var e challenge.Enrollment
		if err := doc.DataTo(&e); err != nil {
			return nil, fmt.Errorf("unmarshal enrollment: %w", err)
		}
		e.UserChallengeID = doc.Ref.ID
		active = append(active, &e)
	}
	return active, nil
}

func (c *firestoreClient) StartChallenge(ctx context.Context, userID, challengeID string) (StartResult, error) {
	existing := c.enrollments(userID).Where("challenge_id", "==", challengeID).Limit(1).Documents(ctx)
	if _, err := existing.Next(); err != iterator.Done {
		if err == nil {
			return StartResult{}, &RejectionError{Message: "Challenge already started"}
		}
		return StartResult{}, err
	}

	chDoc, err := c.client.Collection("challenges").Doc(challengeID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return StartResult{}, &RejectionError{Message: "Challenge not found"}
		}
		return StartResult{}, err
	}

	var ch challenge.Challenge
	if err := chDoc.DataTo(&ch); err != nil {
		return StartResult{}, fmt.Errorf("unmarshal challenge: %w", err)
	}

	enrollment := challenge.Enrollment{
		ChallengeID: challengeID,
		State:       challenge.StateActive,
		TotalDays:   ch.DurationDays,
	}
	ref, _, err := c.enrollments(userID).Add(ctx, enrollment)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{UserChallengeID: ref.ID}, nil
}

func (c *firestoreClient) CheckIn(ctx context.Context, userID, challengeID string) (CheckInResult, error) {
	iter := c.enrollments(userID).Where("challenge_id", "==", challengeID).Limit(1).Documents(ctx)
	doc, err := iter.Next()
	if err == iterator.Done {
		return CheckInResult{}, &RejectionError{Message: "Challenge is not active"}
	}
	if err != nil {
		return CheckInResult{}, err
	}

	var e challenge.Enrollment
	if err := doc.DataTo(&e); err != nil {
		return CheckInResult{}, fmt.Errorf("unmarshal enrollment: %w", err)
	}
	e.UserChallengeID = doc.Ref.ID

	now := time.Now()
	if e.LastCheckInDate != nil && streak.SameDay(*e.LastCheckInDate, now, c.loc) {
		return CheckInResult{}, &RejectionError{Message: "Already checked in today"}
	}
	if err := challenge.CheckIn(&e, now, c.loc); err != nil {
		return CheckInResult{}, &RejectionError{Message: err.Error()}
	}

	chDoc, err := c.client.Collection("challenges").Doc(challengeID).Get(ctx)
	if err != nil {
		return CheckInResult{}, err
	}
	var ch challenge.Challenge
	if err := chDoc.DataTo(&ch); err != nil {
		return CheckInResult{}, fmt.Errorf("unmarshal challenge: %w", err)
	}

	gained := challenge.DailyXP(ch.Difficulty)
	if e.State == challenge.StateCompleted {
		gained += ch.XPReward
	}

	profile, err := c.FetchProfile(ctx, userID)
	if err != nil {
		return CheckInResult{}, err
	}
	newXP := profile.XP + gained
	newLevel := newXP/xp.DefaultLevelSpan + 1

	if _, err := doc.Ref.Set(ctx, e); err != nil {
		return CheckInResult{}, err
	}
	if _, err := c.users().Doc(userID).Update(ctx, []firestore.Update{
		{Path: "xp", Value: newXP},
		{Path: "level", Value: newLevel},
		{Path: "streak", Value: e.CurrentStreak},
	}); err != nil {
		return CheckInResult{}, err
	}

	result := CheckInResult{XPGained: gained}
	if newLevel > profile.Level {
		result.LeveledUp = true
		result.NewLevel = newLevel
	}
	return result, nil
}

func (c *firestoreClient) ListUserBadges(ctx context.Context, userID string) ([]BadgeRecord, error) {
	iter := c.users().Doc(userID).Collection("user_badges").Documents(ctx)

	var records []BadgeRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var record BadgeRecord
		if err := doc.DataTo(&record); err != nil {
			return nil, fmt.Errorf("unmarshal badge: %w", err)
		}
		if record.BadgeID == "" {
			record.BadgeID = doc.Ref.ID
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *firestoreClient) ListLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	iter := c.users().OrderBy("xp", firestore.Desc).Limit(50).Documents(ctx)

	var entries []LeaderboardEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var entry LeaderboardEntry
		if err := doc.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("unmarshal leaderboard entry: %w", err)
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}
	return entries, nil
}
