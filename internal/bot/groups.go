package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"day-organiser/internal/model"
	"day-organiser/internal/service"
)

func (b *Bot) handleGroups(msg *tgbotapi.Message) error {
	active := b.session.ActiveGroup()
	var groups []*model.Group
	b.session.View(func(tx *service.Tx) { groups = append(groups, tx.Data.Groups...) })

	if len(groups) == 0 {
		return b.sendText(msg.Chat.ID, "No groups yet. Create one with /newgroup Home")
	}
	header := "📂 <b>Groups</b> (showing all)\n"
	if active != "" {
		header = "📂 <b>Groups</b>\n"
	}
	return b.sendText(msg.Chat.ID, header+renderGroupTree(service.BuildGroupTree(groups), active))
}

// handleNewGroup accepts "/newgroup Name" or "/newgroup Name | parent-id".
func (b *Bot) handleNewGroup(ctx context.Context, msg *tgbotapi.Message) error {
	name, parentRef, _ := strings.Cut(msg.CommandArguments(), "|")
	name = strings.TrimSpace(name)
	parentRef = strings.TrimSpace(parentRef)
	if name == "" {
		return b.sendText(msg.Chat.ID, "Usage: /newgroup Kids | home-id")
	}

	var g *model.Group
	err := b.session.Mutate(ctx, func(tx *service.Tx) error {
		input := service.GroupInput{Name: name}
		if parentRef != "" {
			parent := tx.Groups.Resolve(parentRef)
			if parent == nil {
				return service.ErrGroupNotFound
			}
			input.ParentID = parent.ID
		}
		g = tx.Groups.AddGroup(input)
		return nil
	})
	if err != nil {
		return b.sendError(msg.Chat.ID, "create group", err)
	}
	logrus.WithFields(logrus.Fields{"group": g.ID, "user": msg.From.ID}).Info("group created")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📂 Group «%s» created: <code>%s</code>", escape(g.Name), g.ID))
}

func (b *Bot) handleDeleteGroup(ctx context.Context, msg *tgbotapi.Message) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(msg.Chat.ID, "Usage: /delgroup &lt;id&gt;")
	}

	var (
		name string
		res  service.DeleteGroupResult
	)
	err := b.session.Mutate(ctx, func(tx *service.Tx) error {
		g := tx.Groups.Resolve(ref)
		if g == nil {
			return service.ErrGroupNotFound
		}
		name = g.Name
		var err error
		res, err = tx.Groups.DeleteGroup(g.ID)
		return err
	})
	if err != nil {
		return b.sendError(msg.Chat.ID, "delete group", err)
	}

	text := fmt.Sprintf("🗑 Group «%s» deleted.", escape(name))
	if res.GroupHasTasks {
		text += " Its tasks are now ungrouped."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleSelectGroup(ctx context.Context, msg *tgbotapi.Message) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" || strings.EqualFold(ref, "all") {
		if err := b.session.SetActiveGroup(ctx, ""); err != nil {
			return b.sendError(msg.Chat.ID, "select group", err)
		}
		return b.sendText(msg.Chat.ID, "Showing all groups.")
	}

	var g *model.Group
	b.session.View(func(tx *service.Tx) { g = tx.Groups.Resolve(ref) })
	if g == nil {
		return b.sendError(msg.Chat.ID, "select group", service.ErrGroupNotFound)
	}
	if err := b.session.SetActiveGroup(ctx, g.ID); err != nil {
		return b.sendError(msg.Chat.ID, "select group", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Now showing «%s».", escape(g.Name)))
}
