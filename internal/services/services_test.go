package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"campusride/internal/auth"
	"campusride/internal/domain"
	"campusride/internal/domain/models"
	"campusride/internal/events"
	"campusride/internal/realtime"
	"campusride/internal/repositories"
	"campusride/internal/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	events    *events.Recorder
	hub       *realtime.Hub
	rides     RideService
	bookings  BookingService
	messages  MessageService
	reviews   ReviewService
	emergency EmergencyService
	docs      DocsService
	users     UserService
	seq       int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	rec := &events.Recorder{}
	hub := realtime.NewHub(8, nil)
	return &fixture{
		ctx:       context.Background(),
		store:     store,
		events:    rec,
		hub:       hub,
		rides:     RideService{Store: store, Events: rec},
		bookings:  BookingService{Store: store, Events: rec},
		messages:  MessageService{Store: store, Hub: hub},
		reviews:   ReviewService{Store: store, Events: rec},
		emergency: EmergencyService{Store: store, Events: rec},
		docs:      DocsService{Store: store},
		users:     UserService{Store: store},
	}
}

func (f *fixture) user(t *testing.T, driver bool) models.User {
	t.Helper()
	f.seq++
	u, err := f.store.CreateUser(f.ctx, models.User{
		Name:         fmt.Sprintf("Student %d", f.seq),
		Email:        fmt.Sprintf("student%d@uni.edu", f.seq),
		PasswordHash: "x",
		University:   "State University",
		IsDriver:     driver,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) ride(t *testing.T, driver models.User, seats int) models.Ride {
	t.Helper()
	r, err := f.rides.Create(f.ctx, driver, RideInput{
		Origin:        "North  Campus",
		Destination:   "Downtown Station",
		DepartureTime: time.Now().Add(48 * time.Hour),
		Price:         4.5,
		TotalSeats:    seats,
	})
	require.NoError(t, err)
	return r
}

func TestAuthRegisterLoginAuthenticate(t *testing.T) {
	store := memory.New()
	svc := AuthService{Store: store, Tokens: auth.NewTokenService("secret", time.Hour)}
	ctx := context.Background()

	in := RegisterInput{Name: "Ana", Email: " Ana@Uni.edu ", Password: "password1", University: "State"}
	u, err := svc.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "ana@uni.edu", u.Email)
	assert.NotEqual(t, "password1", u.PasswordHash)

	_, err = svc.Register(ctx, in)
	assert.True(t, domain.IsConflict(err))

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "b@uni.edu", Password: "short", University: "State"})
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Login(ctx, "ana@uni.edu", "wrong-password")
	assert.True(t, domain.IsUnauthorized(err))
	_, err = svc.Login(ctx, "nobody@uni.edu", "password1")
	assert.True(t, domain.IsUnauthorized(err))

	sess, err := svc.Login(ctx, "ANA@uni.edu", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	me, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.True(t, domain.IsUnauthorized(err))
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, false)

	yes := true
	bio := "CS major"
	updated, err := f.users.UpdateProfile(f.ctx, u.ID, models.UserUpdate{IsDriver: &yes, Bio: &bio})
	require.NoError(t, err)
	assert.True(t, updated.IsDriver)
	assert.Equal(t, "CS major", updated.Bio)
	assert.Equal(t, u.Email, updated.Email)

	blank := "  "
	_, err = f.users.UpdateProfile(f.ctx, u.ID, models.UserUpdate{Name: &blank})
	assert.True(t, domain.IsValidation(err))

	_, err = f.users.Get(f.ctx, 999)
	assert.True(t, domain.IsNotFound(err))
}

func TestRideCreateRules(t *testing.T) {
	f := newFixture(t)
	passenger := f.user(t, false)
	driver := f.user(t, true)

	_, err := f.rides.Create(f.ctx, passenger, RideInput{Origin: "A", Destination: "B", TotalSeats: 2, DepartureTime: time.Now().Add(time.Hour)})
	assert.True(t, domain.IsForbidden(err))

	_, err = f.rides.Create(f.ctx, driver, RideInput{Origin: "A", Destination: "B", TotalSeats: 9, DepartureTime: time.Now().Add(time.Hour)})
	assert.True(t, domain.IsValidation(err))

	_, err = f.rides.Create(f.ctx, driver, RideInput{Origin: "A", Destination: "B", TotalSeats: 2, DepartureTime: time.Now().Add(-time.Hour)})
	assert.True(t, domain.IsValidation(err))

	r := f.ride(t, driver, 3)
	assert.Equal(t, "North Campus", r.Origin)
	assert.Equal(t, models.RideActive, r.Status)
	assert.Equal(t, 3, r.AvailableSeats)
}

func TestListByDriverOwnOnly(t *testing.T) {
	f := newFixture(t)
	d1 := f.user(t, true)
	d2 := f.user(t, true)
	f.ride(t, d1, 2)

	rides, err := f.rides.ListByDriver(f.ctx, d1, d1.ID)
	require.NoError(t, err)
	assert.Len(t, rides, 1)

	_, err = f.rides.ListByDriver(f.ctx, d2, d1.ID)
	assert.True(t, domain.IsForbidden(err))
}

func TestEndToEndBookingScenario(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, true)
	a := f.user(t, false)
	ride := f.ride(t, driver, 3)

	b, err := f.bookings.Create(f.ctx, a, ride.ID, "see you at the gate")
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)

	got, err := f.rides.Get(f.ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableSeats)

	b, err = f.bookings.UpdateStatus(f.ctx, driver, b.ID, models.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)

	got, err = f.rides.Get(f.ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableSeats, "confirming must not take a second seat")

	cancelled, err := f.rides.Cancel(f.ctx, driver, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideCancelled, cancelled.Status)

	detail, err := f.bookings.Get(f.ctx, a, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, detail.Status)

	assert.Equal(t, []string{events.BookingCreated, events.BookingStatusChanged, events.RideCancelled}, f.events.Types())
}

func TestBookingCreateRejections(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, true)
	a := f.user(t, false)
	c := f.user(t, false)
	ride := f.ride(t, driver, 1)

	_, err := f.bookings.Create(f.ctx, driver, ride.ID, "")
	assert.True(t, domain.IsValidation(err), "own ride")

	_, err = f.bookings.Create(f.ctx, a, ride.ID, "")
	require.NoError(t, err)

	_, err = f.bookings.Create(f.ctx, a, ride.ID, "")
	assert.True(t, domain.IsValidation(err), "duplicate active booking")

	_, err = f.bookings.Create(f.ctx, c, ride.ID, "")
	assert.True(t, domain.IsValidation(err), "no seats left")

	_, err = f.bookings.Create(f.ctx, c, 999, "")
	assert.True(t, domain.IsNotFound(err))
}

func TestBookingStatusPermissions(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, true)
	a := f.user(t, false)
	stranger := f.user(t, false)
	ride := f.ride(t, driver, 2)

	b, err := f.bookings.Create(f.ctx, a, ride.ID, "")
	require.NoError(t, err)

	_, err = f.bookings.UpdateStatus(f.ctx, a, b.ID, models.BookingConfirmed)
	assert.True(t, domain.IsForbidden(err), "passenger cannot confirm")

	_, err = f.bookings.UpdateStatus(f.ctx, stranger, b.ID, models.BookingCancelled)
	assert.True(t, domain.IsForbidden(err))

	_, err = f.bookings.UpdateStatus(f.ctx, driver, b.ID, models.BookingCompleted)
	assert.True(t, domain.IsValidation(err), "pending cannot jump to completed")

	_, err = f.bookings.UpdateStatus(f.ctx, driver, b.ID, models.BookingStatus("lost"))
	assert.True(t, domain.IsValidation(err))

	b, err = f.bookings.UpdateStatus(f.ctx, a, b.ID, models.BookingCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, b.Status)

	got, err := f.rides.Get(f.ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableSeats, "cancel frees the seat")

	_, err = f.bookings.UpdateStatus(f.ctx, driver, b.ID, models.BookingConfirmed)
	assert.True(t, domain.IsValidation(err), "cancelled is terminal")
}

func TestBookingDeleteRestoresSeat(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, true)
	a := f.user(t, false)
	ride := f.ride(t, driver, 1)

	b, err := f.bookings.Create(f.ctx, a, ride.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.bookings.Delete(f.ctx, driver, b.ID))

	got, err := f.rides.Get(f.ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableSeats)

	err = f.bookings.Delete(f.ctx, a, b.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestRideUpdate(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, true)
	other := f.user(t, true)
	a := f.user(t, false)
	b := f.user(t, false)
	ride := f.ride(t, driver, 3)

	_, err := f.bookings.Create(f.ctx, a, ride.ID, "")
	require.NoError(t, err)
	_, err = f.bookings.Create(f.ctx, b, ride.ID, "")
	require.NoError(t, err)

	one := 1
	_, err = f.rides.Update(f.ctx, driver, ride.ID, models.RideUpdate{TotalSeats: &one})
	assert.True(t, domain.IsValidation(err))

	price := 6.0
	_, err = f.rides.Update(f.ctx, other, ride.ID, models.RideUpdate{Price: &price})
	assert.True(t, domain.IsForbidden(err))

	updated, err := f.rides.Update(f.ctx, driver, ride.ID, models.RideUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 6.0, updated.Price)
	assert.Equal(t, 1, updated.AvailableSeats)

	status := models.RideCancelled
	updated, err = f.rides.Update(f.ctx, driver, ride.ID, models.RideUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.RideCancelled, updated.Status)

	list, err := f.rides.ListBookings(f.ctx, driver, ride.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, item := range list {
		assert.Equal(t, models.BookingCancelled, item.Status)
		assert.NotEmpty(t, item.Passenger.Name)
	}

	_, err = f.rides.Update(f.ctx, driver, ride.ID, models.RideUpdate{Price: &price})
	assert.True(t, domain.IsValidation(err), "cancelled rides are frozen")
}

func TestReviewAggregateAndEligibility(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, true)
	ride := f.ride(t, driver, 3)

	for _, rating := range []int{4, 5, 3} {
		p := f.user(t, false)
		b, err := f.bookings.Create(f.ctx, p, ride.ID, "")
		require.NoError(t, err)
		_, err = f.bookings.UpdateStatus(f.ctx, driver, b.ID, models.BookingConfirmed)
		require.NoError(t, err)
		_, err = f.bookings.UpdateStatus(f.ctx, driver, b.ID, models.BookingCompleted)
		require.NoError(t, err)

		_, err = f.reviews.Create(f.ctx, p, ReviewInput{RideID: ride.ID, RevieweeID: driver.ID, Rating: rating})
		require.NoError(t, err)

		if rating == 3 {
			_, err = f.reviews.Create(f.ctx, p, ReviewInput{RideID: ride.ID, RevieweeID: driver.ID, Rating: 1})
			assert.True(t, domain.IsConflict(err))
		}
	}

	d, err := f.users.Get(f.ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, d.Rating)
	assert.Equal(t, 3, d.ReviewCount)

	outsider := f.user(t, false)
	_, err = f.reviews.Create(f.ctx, outsider, ReviewInput{RideID: ride.ID, RevieweeID: driver.ID, Rating: 5})
	assert.True(t, domain.IsForbidden(err))

	_, err = f.reviews.Create(f.ctx, driver, ReviewInput{RideID: ride.ID, RevieweeID: driver.ID, Rating: 5})
	assert.True(t, domain.IsValidation(err))

	_, err = f.reviews.Create(f.ctx, driver, ReviewInput{RideID: ride.ID, RevieweeID: outsider.ID, Rating: 6})
	assert.True(t, domain.IsValidation(err))

	list, err := f.reviews.ListForUser(f.ctx, driver.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestMessaging(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, false)
	b := f.user(t, false)
	sub := f.hub.Subscribe(b.ID)
	defer sub.Close()

	_, err := f.messages.Send(f.ctx, a, a.ID, nil, "hi me")
	assert.True(t, domain.IsValidation(err))
	_, err = f.messages.Send(f.ctx, a, 999, nil, "hello?")
	assert.True(t, domain.IsNotFound(err))
	_, err = f.messages.Send(f.ctx, a, b.ID, nil, "   ")
	assert.True(t, domain.IsValidation(err))
	_, err = f.messages.Send(f.ctx, a, b.ID, nil, string(bytes.Repeat([]byte("x"), 2001)))
	assert.True(t, domain.IsValidation(err))

	m1, err := f.messages.Send(f.ctx, a, b.ID, nil, "are you driving tomorrow?")
	require.NoError(t, err)
	ev := <-sub.C
	assert.Equal(t, realtime.EventMessage, ev.Type)

	_, err = f.messages.Send(f.ctx, b, a.ID, nil, "yes, 8am")
	require.NoError(t, err)

	n, err := f.messages.UnreadCount(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	overview, err := f.messages.Overview(f.ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, overview, 1)
	assert.Equal(t, a.ID, overview[0].User.ID)
	assert.Equal(t, 1, overview[0].UnreadCount)

	_, err = f.messages.MarkRead(f.ctx, a.ID, m1.ID)
	assert.True(t, domain.IsForbidden(err), "sender cannot mark read")

	read, err := f.messages.MarkRead(f.ctx, b.ID, m1.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	_, err = f.messages.MarkRead(f.ctx, b.ID, 999)
	assert.True(t, domain.IsNotFound(err))

	conv, err := f.messages.Conversation(f.ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, m1.ID, conv[0].ID)
}

func TestEmergencyFlow(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, true)
	rider := f.user(t, false)
	ride := f.ride(t, driver, 2)

	_, err := f.emergency.AddContact(f.ctx, rider.ID, ContactInput{Name: "Mom", Phone: "555-0100", IsPrimary: true})
	require.NoError(t, err)
	_, err = f.emergency.AddContact(f.ctx, rider.ID, ContactInput{Name: "", Phone: "1"})
	assert.True(t, domain.IsValidation(err))

	_, err = f.emergency.Raise(f.ctx, rider, AlertInput{RideID: ride.ID, Type: "fire"})
	assert.True(t, domain.IsValidation(err))

	lat := 91.0
	_, err = f.emergency.Raise(f.ctx, rider, AlertInput{RideID: ride.ID, Type: models.EmergencySafety, Latitude: &lat})
	assert.True(t, domain.IsValidation(err))

	_, err = f.emergency.Raise(f.ctx, rider, AlertInput{RideID: 999, Type: models.EmergencySafety})
	assert.True(t, domain.IsNotFound(err))

	lat = 40.7
	res, err := f.emergency.Raise(f.ctx, rider, AlertInput{RideID: ride.ID, Type: models.EmergencyMedical, Latitude: &lat})
	require.NoError(t, err)
	assert.Equal(t, models.AlertActive, res.Alert.Status)
	require.Len(t, res.Contacts, 1)

	_, err = f.emergency.Resolve(f.ctx, driver.ID, res.Alert.ID)
	assert.True(t, domain.IsForbidden(err))

	resolved, err := f.emergency.Resolve(f.ctx, rider.ID, res.Alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = f.emergency.Resolve(f.ctx, rider.ID, res.Alert.ID)
	assert.True(t, domain.IsValidation(err))

	assert.Equal(t, []string{events.AlertRaised, events.AlertResolved}, f.events.Types()[len(f.events.Types())-2:])
}

func TestEmergencyContactOwnership(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, false)
	b := f.user(t, false)

	c, err := f.emergency.AddContact(f.ctx, a.ID, ContactInput{Name: "Dad", Phone: "555-0101"})
	require.NoError(t, err)

	_, err = f.emergency.UpdateContact(f.ctx, b.ID, c.ID, ContactInput{Name: "X", Phone: "1"})
	assert.True(t, domain.IsForbidden(err))

	updated, err := f.emergency.UpdateContact(f.ctx, a.ID, c.ID, ContactInput{Name: "Father", Phone: "555-0101", Relationship: "parent"})
	require.NoError(t, err)
	assert.Equal(t, "Father", updated.Name)

	assert.True(t, domain.IsForbidden(f.emergency.DeleteContact(f.ctx, b.ID, c.ID)))
	require.NoError(t, f.emergency.DeleteContact(f.ctx, a.ID, c.ID))

	list, err := f.emergency.ListContacts(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTicketRequiresConfirmedBooking(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, true)
	a := f.user(t, false)
	stranger := f.user(t, false)
	ride := f.ride(t, driver, 2)

	b, err := f.bookings.Create(f.ctx, a, ride.ID, "")
	require.NoError(t, err)

	_, _, err = f.docs.GenerateETicket(f.ctx, a, b.ID)
	assert.True(t, domain.IsForbidden(err), "pending booking has no ticket")

	_, err = f.bookings.UpdateStatus(f.ctx, driver, b.ID, models.BookingConfirmed)
	require.NoError(t, err)

	_, _, err = f.docs.GenerateETicket(f.ctx, stranger, b.ID)
	assert.True(t, domain.IsForbidden(err))

	pdf, filename, err := f.docs.GenerateETicket(f.ctx, a, b.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Contains(t, filename, fmt.Sprintf("ETICKET_%d_", b.ID))
}

func TestTranslateUnknownErrorIsInternal(t *testing.T) {
	err := translate(fmt.Errorf("driver: bad connection"), "ride")
	assert.True(t, domain.IsInternal(err))
	assert.Nil(t, translate(nil, "ride"))
}

// brokenUsers fails GetUser for one id with err.
type brokenUsers struct {
	*memory.Store
	failID int64
	err    error
}

func (s brokenUsers) GetUser(ctx context.Context, id int64) (models.User, error) {
	if id == s.failID {
		return models.User{}, s.err
	}
	return s.Store.GetUser(ctx, id)
}

func TestProfileLookupFailuresAreNotSwallowed(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, true)
	passenger := f.user(t, false)
	ride := f.ride(t, driver, 3)
	_, err := f.bookings.Create(f.ctx, passenger, ride.ID, "")
	require.NoError(t, err)
	_, err = f.messages.Send(f.ctx, driver, passenger.ID, nil, "pickup at gate 2")
	require.NoError(t, err)

	broken := brokenUsers{Store: f.store, failID: passenger.ID, err: fmt.Errorf("driver: bad connection")}

	rides := RideService{Store: broken}
	_, err = rides.ListBookings(f.ctx, driver, ride.ID)
	assert.True(t, domain.IsInternal(err), "got %v", err)

	messages := MessageService{Store: broken, Hub: f.hub}
	_, err = messages.Overview(f.ctx, driver.ID)
	assert.True(t, domain.IsInternal(err), "got %v", err)

	// a missing profile is still stubbed or skipped
	missing := brokenUsers{Store: f.store, failID: passenger.ID, err: repositories.ErrNotFound}
	list, err := RideService{Store: missing}.ListBookings(f.ctx, driver, ride.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, passenger.ID, list[0].Passenger.ID)
	assert.Empty(t, list[0].Passenger.Name)

	convs, err := MessageService{Store: missing, Hub: f.hub}.Overview(f.ctx, driver.ID)
	require.NoError(t, err)
	assert.Empty(t, convs)
}
