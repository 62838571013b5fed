// Package command publishes device settings to the broker on behalf of the
// REST surface.
//
// Every publish returns an *Ack that resolves once the broker has
// acknowledged the message (QoS 1 PUBACK) or the publish has failed. An
// acknowledgment means the broker has the message, not that the device
// applied it.
//
// REST handlers pair a publish with a storage write through DualWrite, which
// runs both concurrently and reports each side's failure separately:
//
//	err := command.DualWrite(ctx,
//	    func(ctx context.Context) error {
//	        return publisher.PublishFan(target, command.FanSettings{FanMode: "auto"}).Wait(ctx)
//	    },
//	    func(ctx context.Context) error {
//	        return devices.SetFanState(ctx, target.DeviceID, state)
//	    },
//	)
//
// Neither side is rolled back when the other fails. Storage and the device
// may disagree until the device next reports its state.
//
// Thread Safety: Publisher is safe for concurrent use.
package command
