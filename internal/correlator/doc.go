// Package correlator turns the publish/subscribe session into a
// request/response primitive: publish a question to the hub, wait for the
// matching answer, give up after a deadline.
//
// # Architecture
//
//	caller ── SendAndWait ──► Registry.Add ──► Transport.Subscribe(response)
//	                                        └─► Transport.Publish(request)
//	broker ── handler ──► Decode ──► Registry.Dispatch ──► Listener.offer
//	                                                          │
//	caller ◄──────────────── first accepted Message ◄─────────┘
//
// Every inbound message on a subscribed response topic is decoded once and
// offered to each registered listener whose topic filter matches. A
// listener keeps the first message its MatchFunc accepts and ignores the
// rest.
//
// # Invariants
//
//   - The response subscription is active before the request is published.
//   - The listener is removed and its subscription released on every exit
//     path: match, timeout, transport error and context cancellation.
//   - Broker subscriptions are reference counted per response topic, so
//     concurrent requests sharing a topic never unsubscribe each other.
//     Subscribe and unsubscribe acks are awaited under a per-topic lock;
//     requests on different topics do not wait for each other.
//   - A listener is never invoked after Registry.Remove returns.
//
// # Outcomes
//
// SendAndWait returns (msg, true, nil) on a match and (Message{}, false, nil)
// on timeout. A timeout is an expected result (for example a device whose
// firmware does not answer the query) and is not an error. The error return
// is reserved for invalid requests, transport failures and cancellation.
//
// # Usage
//
//	msg, ok, err := c.SendAndWait(ctx, correlator.Request{
//	    RequestTopic:  "pt:j1/mt:cmd/rt:dev/rn:zw/ad:1/sv:chargepoint/ad:3_0",
//	    ResponseTopic: "pt:j1/mt:evt/rt:dev/rn:zw/ad:1/sv:chargepoint/ad:3_0",
//	    Payload:       cmd,
//	    Match:         correlator.MatchType("evt.max_current.report"),
//	    Timeout:       5 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	if !ok {
//	    // unsupported by the device; skip
//	}
//	maxCurrent, _ := msg.Data.Int("val")
package correlator
