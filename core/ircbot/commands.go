package ircbot

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"

	"bcdice-irc/internal/constants"
)

// MasterPolicy decides whether nick may run master commands.
type MasterPolicy func(nick string) bool

// AllowAll lets anyone run master commands.
func AllowAll(string) bool { return true }

// OnlyMaster restricts master commands to one nickname, compared case-insensitively.
// An empty nickname allows everyone.
func OnlyMaster(master string) MasterPolicy {
	master = strings.TrimSpace(master)
	if master == "" {
		return AllowAll
	}
	return func(nick string) bool {
		return strings.EqualFold(nick, master)
	}
}

var setGamePattern = regexp.MustCompile(`(?i)^set\s+game->([!&. \w]+)`)

// parseSetGame extracts the rule-set id from "set game-><id>".
func parseSetGame(text string) (string, bool) {
	m := setGamePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	id := strings.TrimSpace(m[1])
	return id, id != ""
}

func (c *Client) isSelf(nick string) bool {
	return strings.EqualFold(nick, c.irc.CurrentNick())
}

func (c *Client) onJoin(m ircmsg.Message) {
	channel := param(m, 0)
	if !c.isSelf(m.Nick()) || channel == "" {
		return
	}
	c.mu.Lock()
	c.channels[strings.ToLower(channel)] = true
	c.mu.Unlock()
	c.logf("joined %s", channel)
}

func (c *Client) onPart(m ircmsg.Message) {
	if c.isSelf(m.Nick()) {
		c.leave(param(m, 0))
	}
}

func (c *Client) onKick(m ircmsg.Message) {
	if c.isSelf(param(m, 1)) {
		c.logf("kicked from %s by %s: %s", param(m, 0), m.Nick(), param(m, 2))
		c.leave(param(m, 0))
	}
}

func (c *Client) onInvite(m ircmsg.Message) {
	channel := param(m, 1)
	c.logf("invited to %s by %s", channel, m.Nick())
	if !isChannel(channel) {
		return
	}
	if err := c.irc.Join(channel); err != nil {
		log.Printf("onInvite: cannot join %s: %v", channel, err)
	}
}

func (c *Client) leave(channel string) {
	c.mu.Lock()
	delete(c.channels, strings.ToLower(channel))
	c.mu.Unlock()
	c.logf("left %s", channel)
}

func (c *Client) onPrivmsg(m ircmsg.Message) {
	nick := m.Nick()
	target := param(m, 0)
	text := strings.TrimSpace(param(m, 1))
	if nick == "" || text == "" || strings.HasPrefix(text, "\x01") {
		return
	}

	inChannel := isChannel(target)
	replyTo := nick
	if inChannel {
		replyTo = target
	}

	switch {
	case strings.EqualFold(text, ".version"):
		c.notice(replyTo, fmt.Sprintf("BCDiceIRC v%s, BCDice %s", constants.AppVersion, c.opts.Engine.Version()))
		return
	case !inChannel && strings.EqualFold(text, "help"):
		c.sendHelp(nick)
		return
	case !inChannel:
		if id, ok := parseSetGame(text); ok {
			c.setRuleSet(nick, id)
			return
		}
	}

	c.roll(nick, replyTo, inChannel, text)
}

func (c *Client) sendHelp(nick string) {
	info, ok := c.opts.Catalog.Lookup(c.RuleSetID())
	if !ok {
		return
	}
	c.notice(nick, fmt.Sprintf("[%s]", info.Name))
	c.notice(nick, info.Help)
}

func (c *Client) setRuleSet(nick, id string) {
	if !c.opts.Master(nick) {
		c.logf("%s is not allowed to change the game system", nick)
		c.notice(nick, "You are not allowed to change the game system")
		return
	}

	info, err := c.opts.Catalog.Resolve(id)
	if err != nil {
		c.notice(nick, fmt.Sprintf("Unknown game system: %s", id))
		return
	}

	c.mu.Lock()
	c.ruleSetID = info.ID
	c.mu.Unlock()
	c.logf("%s set game system to %s", nick, info.ID)

	if c.notifier != nil {
		c.notifier.NotifyRuleSetChanged(info.ID)
	}
	message := fmt.Sprintf("Game set to %s", info.Name)
	for _, channel := range c.Channels() {
		c.notice(channel, message)
	}
	c.notice(nick, message)
}

func (c *Client) roll(nick, replyTo string, inChannel bool, text string) {
	result, ok := c.opts.Engine.Roll(c.RuleSetID(), text)
	if !ok {
		return
	}
	if result.Secret {
		c.notice(nick, fmt.Sprintf("%s: %s", nick, result.Text))
		if inChannel {
			c.notice(replyTo, fmt.Sprintf("%s: [Secret roll]", nick))
		}
		return
	}
	c.notice(replyTo, fmt.Sprintf("%s: %s", nick, result.Text))
}
