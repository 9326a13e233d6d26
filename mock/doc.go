// Package mock substitutes capability interfaces with fakes that record
// calls and verify declared expectations.
//
// A fake is a plain struct implementing the capability, forwarding every
// method to a Handle:
//
//	type fakeNotifier struct{ h *mock.Handle }
//
//	func (f fakeNotifier) Notify(ctx context.Context, userID string) error {
//	    return f.h.Record("Notify", userID).Err()
//	}
//
//	notifier := mock.New[Notifier](env.Mocks, mock.Strict, func(h *mock.Handle) Notifier {
//	    return fakeNotifier{h}
//	})
//	mock.HandleOf(env.Mocks, notifier).Expect("Notify", "u1").Once()
//
// Strict handles fail calls nobody declared; spies record them and return
// neutral values. Registry.Verify lists every unmet count constraint and,
// for strict handles, every unexpected call.
package mock
