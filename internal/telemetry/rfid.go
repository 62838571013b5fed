package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/command"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/keycard"
)

// statusUnassigned is announced by scanners that have no owner yet.
const statusUnassigned = "unassigned"

// RFIDScan authorises a card scan. It replies on
// {userId}/rfid/{location}/{deviceId}/scan/{cardUID} with {authorised} and
// appends an access log entry. The reply and the log write run
// concurrently. A failed tag lookup denies access.
func (h *Handlers) RFIDScan(ctx context.Context, t string, payload []byte) error {
	dt, err := deviceTopic(t)
	if err != nil {
		return err
	}

	var p scanPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	tag := strings.TrimSpace(p.CardUID.value())
	if tag == "" {
		return fmt.Errorf("%w: cardUID", ErrMissingField)
	}
	if err := keycard.ValidateTag(tag); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	now := h.now()
	var errs []error

	entry := keycard.AccessLogEntry{
		AccessedAt: now,
		RFIDTag:    tag,
		UserID:     dt.UserID,
		Location:   dt.Location,
		DeviceID:   dt.DeviceID,
	}
	card, err := h.keycards.LookupByTag(ctx, tag)
	switch {
	case err == nil:
		entry.KeycardID = &card.ID
		entry.UserID = card.UserID
		entry.Granted = card.Authorises(now)
	case errors.Is(err, keycard.ErrKeycardNotFound):
	default:
		errs = append(errs, fmt.Errorf("looking up tag: %w", err))
	}

	target := command.Target{UserID: dt.UserID, Location: dt.Location, DeviceID: dt.DeviceID}
	if err := command.DualWrite(ctx,
		func(ctx context.Context) error {
			return h.publisher.PublishScanResponse(target, tag, entry.Granted).Wait(ctx)
		},
		func(ctx context.Context) error {
			_, err := h.keycards.AppendAccessLog(ctx, entry)
			return err
		},
	); err != nil {
		errs = append(errs, err)
	}

	if p.Status != nil {
		if err := h.applyLockDirective(ctx, dt.DeviceID, *p.Status); err != nil {
			errs = append(errs, err)
		}
	}

	h.recorder.WriteAccessDecision(dt.DeviceID, dt.Location, tag, entry.Granted, now)
	h.notifier.Broadcast(ChannelAccess, AccessEvent{
		UserID:   dt.UserID,
		Location: dt.Location,
		DeviceID: dt.DeviceID,
		RFIDTag:  tag,
		Granted:  entry.Granted,
		At:       now,
	})
	h.logger.Info("rfid scan", "device_id", dt.DeviceID, "location", dt.Location, "granted", entry.Granted)

	return errors.Join(errs...)
}

// applyLockDirective stores "locked" or "unlocked". Other status values
// are not lock directives and are ignored.
func (h *Handlers) applyLockDirective(ctx context.Context, deviceID, status string) error {
	var locked bool
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "locked":
		locked = true
	case "unlocked":
		locked = false
	default:
		h.logger.Debug("ignoring scan status", "device_id", deviceID, "status", status)
		return nil
	}
	if err := h.devices.SetLocked(ctx, deviceID, locked); err != nil {
		return fmt.Errorf("storing lock state: %w", err)
	}
	return nil
}

// RFIDAssign provisions scanners announcing themselves as unassigned. A
// new id gets a device row; an id that is already assigned gets its owner
// and location republished on rfid/assign/{deviceId}. Repeated
// announcements never create a second row.
func (h *Handlers) RFIDAssign(ctx context.Context, _ string, payload []byte) error {
	var p assignPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	id := strings.TrimSpace(p.DeviceID.value())
	if id == "" {
		return fmt.Errorf("%w: DeviceID", ErrMissingField)
	}
	if err := device.ValidateID(id); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !strings.EqualFold(p.Status, statusUnassigned) {
		h.logger.Debug("ignoring scanner status", "device_id", id, "status", p.Status)
		return nil
	}

	created, err := h.devices.CreateIfAbsent(ctx, &device.Device{
		Kind:      device.KindRFID,
		ID:        id,
		Active:    true,
		CreatedAt: h.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("provisioning scanner %s: %w", id, err)
	}
	if created {
		h.logger.Info("scanner provisioned", "device_id", id)
		h.notifier.Broadcast(ChannelProvisioned, ProvisionedEvent{Kind: device.KindRFID, DeviceID: id})
		return nil
	}

	d, err := h.devices.Get(ctx, device.KindRFID, id)
	if err != nil {
		return fmt.Errorf("loading scanner %s: %w", id, err)
	}
	if !d.Assigned() {
		return nil
	}
	ack := h.publisher.PublishAssignment(id, command.Assignment{UserID: *d.UserID, Location: *d.Location})
	if err := ack.Wait(ctx); err != nil {
		return fmt.Errorf("republishing assignment for %s: %w", id, err)
	}
	h.logger.Debug("assignment republished", "device_id", id)
	return nil
}
