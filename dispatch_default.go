package raid

import (
	"context"
	"fmt"

	"github.com/WelcomerTeam/Discord/discord"
	"github.com/samber/lo"
)

func init() {
	for action := ActionAttend0; action <= ActionAttend6; action++ {
		registerActionHandler(action, onAttend)
	}

	for action := ActionPick1; action <= ActionPick5; action++ {
		registerActionHandler(action, onPick)
	}

	registerActionHandler(ActionRemote, onRemote)
	registerActionHandler(ActionReady, onReady)
	registerActionHandler(ActionRequestInvite, onRequestInvite)
	registerActionHandler(ActionBeginInvite, onBeginInvite)
	registerActionHandler(ActionRemove, onRemove)
	registerActionHandler(ActionHelp, onHelp)
	registerActionHandler(ActionNewGroup, onNewGroup)
	registerActionHandler(ActionPageForward, onChangePage)
	registerActionHandler(ActionPageBack, onChangePage)
	registerActionHandler(ActionCancel, onCancel)
	registerActionHandler(ActionAdvanceStop, onAdvanceStop)
	registerActionHandler(ActionGroupReady, onGroupReady)
}

// onSessionMessage rejects actions made on a sub-message.
func onSessionMessage(call *ActionCall) error {
	if call.SubMessage != nil {
		return ErrActionIgnored
	}

	return nil
}

func onAttend(_ context.Context, _ *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if err := onSessionMessage(call); err != nil {
		return err
	}

	count, _ := call.Action.Count()
	player := call.Event.UserID

	current, member := call.Session.AttendanceOf(player)

	if call.Event.Removed {
		// Taking the reaction for the current party size back leaves the session.
		if !member || current.InPerson != count {
			return ErrActionIgnored
		}

		return removePlayer(call, outcome)
	}

	return setAttendance(call, outcome, Attendance{InPerson: count, Remote: current.Remote})
}

func onRemote(_ context.Context, _ *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if err := onSessionMessage(call); err != nil {
		return err
	}

	attendance, _ := call.Session.AttendanceOf(call.Event.UserID)

	if call.Event.Removed {
		attendance.Remote = max(attendance.Remote-1, 0)
	} else {
		attendance.Remote++
	}

	return setAttendance(call, outcome, attendance)
}

// setAttendance applies a new attendance, leaving the session when nothing is left.
func setAttendance(call *ActionCall, outcome *Outcome, attendance Attendance) error {
	if attendance.Total() == 0 {
		return removePlayer(call, outcome)
	}

	result, err := call.Session.AddPlayer(NotInSession, call.Event.UserID, attendance, NoPlayer)
	if err != nil {
		return err
	}

	outcome.notify(NotifyUninvited, result.GroupIndex, result.Revoked...)
	outcome.rerender()

	return nil
}

func removePlayer(call *ActionCall, outcome *Outcome) error {
	wasInviting := call.Session.InvitingPlayer() == call.Event.UserID
	queued := lo.Contains(call.Session.QueuedPlayers(), call.Event.UserID)

	result := call.Session.RemovePlayer(call.Event.UserID)
	if result.GroupIndex == NotInSession && !queued {
		return ErrNotInSession
	}

	outcome.notify(NotifyUninvited, result.GroupIndex, result.Revoked...)

	if wasInviting {
		closeDialogs(call, outcome)
	}

	outcome.rerender()

	return nil
}

func onRemove(_ context.Context, _ *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if err := onSessionMessage(call); err != nil {
		return err
	}

	if call.Event.Removed {
		return ErrActionIgnored
	}

	return removePlayer(call, outcome)
}

func onReady(_ context.Context, _ *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if err := onSessionMessage(call); err != nil {
		return err
	}

	if call.Event.Removed {
		return ErrActionIgnored
	}

	if call.Session.IsInRaid(call.Event.UserID, true) == NotInSession {
		return ErrNotInSession
	}

	outcome.rerender()

	groupIndex := call.Session.PlayerReady(call.Event.UserID)
	if groupIndex == NotInSession {
		return nil
	}

	view := call.Session.Groups()[groupIndex]

	players := lo.Map(view.Attending, func(member MemberView, _ int) discord.Snowflake {
		return member.Player
	})

	players = append(players, lo.Map(view.Invited, func(invitee InviteeView, _ int) discord.Snowflake {
		return invitee.Player
	})...)

	outcome.Pings = append(outcome.Pings, Ping{
		SessionID:  call.SessionID,
		ChannelID:  call.Event.ChannelID,
		GroupIndex: groupIndex,
		Players:    lo.Uniq(players),
	})

	return nil
}

func onRequestInvite(_ context.Context, _ *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if err := onSessionMessage(call); err != nil {
		return err
	}

	if call.Event.Removed {
		if !call.Session.CancelInviteRequest(call.Event.UserID) {
			return ErrNotQueued
		}
	} else if err := call.Session.RequestInvite(call.Event.UserID); err != nil {
		return err
	}

	outcome.rerender()

	return nil
}

func onBeginInvite(_ context.Context, d *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if err := onSessionMessage(call); err != nil {
		return err
	}

	if call.Event.Removed {
		return ErrActionIgnored
	}

	player := call.Event.UserID

	switch session := call.Session.(type) {
	case *Mule:
		if !session.IsMule(player) {
			return ErrNotMule
		}
	default:
		if session.IsInRaid(player, false) == NotInSession {
			return ErrNotInSession
		}
	}

	if err := call.Session.BeginInvite(player); err != nil {
		return err
	}

	outcome.Dialogs = append(outcome.Dialogs, inviteDialog(d, call, NoPlayer))
	outcome.rerender()

	return nil
}

func inviteDialog(d *Dispatcher, call *ActionCall, messageID discord.Snowflake) Dialog {
	return Dialog{
		MessageID: messageID,
		SessionID: call.SessionID,
		ChannelID: call.Event.ChannelID,
		Kind:      SubMessageInviteDialog,
		Owner:     call.Session.InvitingPlayer(),
		Page:      call.Session.InvitePage(),
		Players:   call.Session.InviteCandidates(d.pageSize),
	}
}

// ownsDialog reports whether the reacting player holds the invite dialog.
func ownsDialog(call *ActionCall) bool {
	return call.SubMessage != nil &&
		call.SubMessage.Kind == SubMessageInviteDialog &&
		call.Session.InvitingPlayer() == call.Event.UserID
}

// closeDialogs unregisters every invite dialog of the session.
func closeDialogs(call *ActionCall, outcome *Outcome) {
	if call.Registry == nil {
		return
	}

	for _, id := range call.Registry.SubMessages(call.SessionID, SubMessageInviteDialog) {
		if call.Registry.UnregisterSubMessage(id) {
			outcome.Closed = append(outcome.Closed, id)
		}
	}
}

func onChangePage(_ context.Context, d *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if call.Event.Removed || !ownsDialog(call) {
		return ErrActionIgnored
	}

	call.Session.ChangeInvitePage(call.Action == ActionPageForward, d.pageSize)

	outcome.Dialogs = append(outcome.Dialogs, inviteDialog(d, call, call.Event.MessageID))

	return nil
}

func onPick(ctx context.Context, d *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if call.Event.Removed {
		return ErrActionIgnored
	}

	index, _ := call.Action.Pick()

	if call.Session.State(call.Now) == StateBossSelection {
		return pickBoss(ctx, d, call, outcome, index)
	}

	if !ownsDialog(call) {
		return ErrActionIgnored
	}

	candidates := call.Session.InviteCandidates(d.pageSize)
	if index >= len(candidates) {
		return ErrActionIgnored
	}

	invitee := candidates[index]

	if err := call.Session.InvitePlayer(invitee, call.Event.UserID); err != nil {
		return err
	}

	groupIndex := call.Session.IsInRaid(invitee, true)

	outcome.notify(NotifyInvited, groupIndex, invitee)
	closeDialogs(call, outcome)
	outcome.rerender()

	return nil
}

func pickBoss(ctx context.Context, d *Dispatcher, call *ActionCall, outcome *Outcome, index int) error {
	if call.SubMessage != nil && call.SubMessage.Owner != NoPlayer && call.SubMessage.Owner != call.Event.UserID {
		return ErrActionIgnored
	}

	candidates := call.Session.BossCandidates()
	if index >= len(candidates) {
		return ErrActionIgnored
	}

	if d.bosses == nil {
		return fmt.Errorf("boss %q: %w", candidates[index], ErrUnknownBoss)
	}

	boss, err := d.bosses.GetBossDescriptor(ctx, candidates[index])
	if err != nil {
		return err
	}

	if err := call.Session.SetBoss(boss); err != nil {
		return err
	}

	if call.Registry != nil {
		for _, id := range call.Registry.SubMessages(call.SessionID, SubMessageBossSelection) {
			if call.Registry.UnregisterSubMessage(id) {
				outcome.Closed = append(outcome.Closed, id)
			}
		}
	}

	outcome.rerender()

	return nil
}

func onCancel(_ context.Context, _ *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if call.Event.Removed {
		return ErrActionIgnored
	}

	if call.SubMessage == nil {
		if !call.Session.CancelInviteRequest(call.Event.UserID) {
			return ErrNotQueued
		}

		outcome.rerender()

		return nil
	}

	if !ownsDialog(call) || !call.Session.EndInviteFor(call.Event.UserID) {
		return ErrActionIgnored
	}

	closeDialogs(call, outcome)
	outcome.rerender()

	return nil
}

func onHelp(_ context.Context, _ *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if call.Event.Removed {
		return ErrActionIgnored
	}

	outcome.notify(NotifyHelp, call.Session.IsInRaid(call.Event.UserID, true), call.Event.UserID)

	return nil
}

func onNewGroup(_ context.Context, _ *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if err := onSessionMessage(call); err != nil {
		return err
	}

	if call.Event.Removed {
		return ErrActionIgnored
	}

	if _, ok := call.Session.(*Mule); ok {
		// Remote parties open on demand when a mule invites.
		return ErrActionIgnored
	}

	if _, err := call.Session.NewGroup(); err != nil {
		return err
	}

	outcome.rerender()

	return nil
}

func onAdvanceStop(_ context.Context, _ *Dispatcher, call *ActionCall, outcome *Outcome) error {
	if err := onSessionMessage(call); err != nil {
		return err
	}

	train, ok := call.Session.(*Train)
	if !ok || call.Event.Removed {
		return ErrActionIgnored
	}

	stop, err := train.AdvanceStop(call.Event.UserID)
	if err != nil {
		return err
	}

	for groupIndex, view := range train.Groups() {
		for _, member := range view.Attending {
			if member.Player == call.Event.UserID {
				continue
			}

			outcome.Notifications = append(outcome.Notifications, Notification{
				Kind:       NotifyTrainMoved,
				PlayerID:   member.Player,
				SessionID:  call.SessionID,
				GroupIndex: groupIndex,
				Stop:       &stop,
			})
		}
	}

	outcome.rerender()

	return nil
}

func onGroupReady(_ context.Context, _ *Dispatcher, call *ActionCall, outcome *Outcome) error {
	mule, ok := call.Session.(*Mule)
	if !ok || call.Event.Removed || call.SubMessage == nil || call.SubMessage.Kind != SubMessageMuleGroup {
		return ErrActionIgnored
	}

	invitees, err := mule.Ready(call.Event.UserID, call.SubMessage.GroupIndex)
	if err != nil {
		return err
	}

	if len(invitees) == 0 {
		return nil
	}

	outcome.notify(NotifyGroupCalled, call.SubMessage.GroupIndex, invitees...)
	outcome.Pings = append(outcome.Pings, Ping{
		SessionID:  call.SessionID,
		ChannelID:  call.Event.ChannelID,
		GroupIndex: call.SubMessage.GroupIndex,
		Players:    append([]discord.Snowflake{call.Event.UserID}, invitees...),
	})
	outcome.rerender()

	return nil
}
