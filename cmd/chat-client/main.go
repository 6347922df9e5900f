// Command chat-client is a line-oriented terminal client for chat-svc built on
// the chatsync packages. Plain lines are sent to the open conversation;
// commands start with a slash, see /help.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gosocialchat/internal/chatsync/api"
	"gosocialchat/internal/chatsync/convlist"
	"gosocialchat/internal/chatsync/model"
	"gosocialchat/internal/chatsync/session"
	"gosocialchat/internal/chatsync/transport"
	"gosocialchat/internal/common"
	"gosocialchat/internal/config"
	"gosocialchat/internal/logging"
	"gosocialchat/internal/protocol"
)

const usage = `commands:
  /list                      conversations, most recent first
  /open <conversation-id>    open a conversation
  /new <user-id>...          start a conversation and open it
  /older                     load older messages
  /react <message-id> <emoji>
  /reply <message-id> <text>
  /delete <message-id>
  /retry <client-id>         resend a failed message
  /search <text>
  /close                     close the open conversation
  /leave                     delete the open conversation for you and close it
  /quit`

type client struct {
	cfg    *config.Config
	self   *common.Claims
	api    *api.Client
	ch     *transport.Channel
	list   *convlist.List
	logger *slog.Logger

	mu      sync.Mutex
	current *session.Session
	printed map[string]string
	typing  string
}

var rootCmd = &cobra.Command{
	Use:   "chat-client",
	Short: "Terminal client for chat-svc",
	Long: `chat-client connects to chat-svc with a token issued by chat-token.
Plain lines are sent to the open conversation; commands start with a slash.

` + usage,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if server, _ := cmd.Flags().GetString("server"); server != "" {
			cfg.Client.ServerURL = server
		}
		if token, _ := cmd.Flags().GetString("token"); token != "" {
			cfg.Client.Token = token
		}
		if name, _ := cmd.Flags().GetString("name"); name != "" {
			cfg.Client.UserName = name
		}
		return run(cfg)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true

	rootCmd.Flags().StringP("server", "s", "", "chat-svc base URL (default from CHAT_SERVER_URL)")
	rootCmd.Flags().StringP("token", "t", "", "access token (default from CHAT_TOKEN)")
	rootCmd.Flags().String("name", "", "display name shown on your messages")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.Logging.OutputPath == "stdout" {
		// keep the conversation readable
		cfg.Logging.OutputPath = "stderr"
	}
	closer := logging.Init(cfg.Logging)
	defer closer.Close()

	if cfg.Client.Token == "" {
		return errors.New("no token, pass --token or set CHAT_TOKEN (issue one with chat-token)")
	}
	self, err := common.IdentityFromToken(cfg.Client.Token)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if cfg.Client.UserName != "" {
		self.Handle = cfg.Client.UserName
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rest := api.New(cfg.Client.ServerURL, cfg.Client.Token)
	c := &client{
		cfg:    cfg,
		self:   self,
		api:    rest,
		ch:     transport.NewChannel(cfg.WebsocketURL()),
		list:   convlist.New(self.UserID, rest),
		logger: slog.Default().With("component", "chat-client"),
	}

	listScope := c.list.Attach(c.ch)
	defer listScope.Close()
	go c.keepConnected(ctx)

	if err := c.list.Refresh(ctx); err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}
	c.printList()
	go c.render(ctx)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	defer c.ch.Disconnect()
	defer c.closeCurrent()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				return nil
			}
			if err := c.handle(ctx, line); err != nil {
				fmt.Println("!", err)
			}
		}
	}
}

// keepConnected dials the push channel and redials with backoff whenever it
// drops. Open sessions re-join their rooms on their own.
func (c *client) keepConnected(ctx context.Context) {
	dropped := make(chan struct{}, 1)
	sub := c.ch.OnStateChange(func(s transport.State) {
		if s == transport.Disconnected {
			select {
			case dropped <- struct{}{}:
			default:
			}
		}
	})
	defer sub.Unsubscribe()

	backoff := time.Second
	for {
		err := c.ch.Connect(ctx, c.cfg.Client.Token)
		switch {
		case err == nil:
			backoff = time.Second
			// pick up conversations that changed while offline
			if err := c.list.Refresh(ctx); err != nil {
				c.logger.Warn("refresh after connect failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-dropped:
			}
		case errors.Is(err, transport.ErrAuthRejected):
			c.logger.Error("push channel rejected the token", "error", err)
			return
		default:
			c.logger.Warn("push channel unavailable", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, 30*time.Second)
		}
	}
}

func (c *client) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		s := c.session()
		if s == nil {
			return errors.New("no conversation open, use /open or /new")
		}
		s.Input()
		_, err := s.Send(ctx, line)
		return err
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "help":
		fmt.Println(usage)
	case "list":
		c.printList()
	case "open":
		if arg == "" {
			return errors.New("usage: /open <conversation-id>")
		}
		return c.open(ctx, arg)
	case "new":
		return c.create(ctx, strings.Fields(arg))
	case "close":
		c.closeCurrent()
	default:
		return c.handleInConversation(ctx, cmd, arg)
	}
	return nil
}

func (c *client) handleInConversation(ctx context.Context, cmd, arg string) error {
	s := c.session()
	if s == nil {
		return errors.New("no conversation open")
	}
	switch cmd {
	case "older":
		added, err := s.LoadOlder(ctx)
		if err != nil {
			return err
		}
		for _, m := range added {
			fmt.Println(c.format(m))
		}
		if !s.HasMore() {
			fmt.Println("-- beginning of conversation --")
		}
	case "react":
		id, emoji, ok := strings.Cut(arg, " ")
		if !ok {
			return errors.New("usage: /react <message-id> <emoji>")
		}
		_, err := s.ToggleReaction(id, strings.TrimSpace(emoji))
		return err
	case "reply":
		id, text, ok := strings.Cut(arg, " ")
		if !ok {
			return errors.New("usage: /reply <message-id> <text>")
		}
		_, err := s.Reply(ctx, id, text)
		return err
	case "delete":
		return s.DeleteMessage(ctx, arg)
	case "retry":
		_, err := s.Retry(ctx, arg)
		return err
	case "leave":
		if err := s.DeleteConversation(ctx); err != nil {
			return err
		}
		c.closeDeleted(s)
	case "search":
		found, err := s.Search(ctx, arg)
		if err != nil {
			return err
		}
		fmt.Printf("-- %d result(s) --\n", len(found))
		for _, m := range found {
			fmt.Println(c.format(m))
		}
	default:
		return fmt.Errorf("unknown command /%s, try /help", cmd)
	}
	return nil
}

func (c *client) open(ctx context.Context, conversationID string) error {
	c.closeCurrent()
	if _, ok := c.list.Get(conversationID); !ok {
		if _, err := c.list.FetchAndInsert(ctx, conversationID); err != nil {
			return err
		}
	}
	s, err := session.Open(ctx, session.Config{
		ConversationID: conversationID,
		SelfID:         c.self.UserID,
		SelfName:       c.self.Handle,
		PageSize:       c.cfg.Chat.PageSize,
		TypingTimeout:  c.cfg.TypingTimeout(),
	}, c.api, c.ch, c.list)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.current = s
	c.printed = make(map[string]string)
	c.typing = ""
	c.mu.Unlock()

	summary, _ := c.list.Get(conversationID)
	fmt.Printf("== %s ==\n", summary.Title(c.self.UserID))
	c.printNew(s)
	return nil
}

func (c *client) create(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return errors.New("usage: /new <user-id>...")
	}
	kind := common.ConversationDirect
	if len(userIDs) > 1 {
		kind = common.ConversationGroup
	}
	req := protocol.CreateConversationRequest{Type: kind.String()}
	for _, id := range userIDs {
		req.Participants = append(req.Participants, protocol.Participant{UserID: id})
	}
	conv, err := c.api.CreateConversation(ctx, req)
	if err != nil {
		return err
	}
	c.list.Insert(model.SummaryFromWire(*conv))
	return c.open(ctx, conv.ID)
}

func (c *client) session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *client) closeCurrent() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// closeDeleted closes s if it is still the open session. Both /leave and a
// conversation_deleted push end up here.
func (c *client) closeDeleted(s *session.Session) {
	c.mu.Lock()
	if c.current != s {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()
	fmt.Println("-- conversation was deleted --")
	s.Close()
}

// render prints what changed in the open conversation and announces
// activity elsewhere.
func (c *client) render(ctx context.Context) {
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	unread := c.list.TotalUnread()
	for {
		var changes <-chan struct{}
		if s := c.session(); s != nil {
			changes = s.Changes()
		}
		select {
		case <-ctx.Done():
			return
		case <-c.list.Changes():
			n := c.list.TotalUnread()
			if n > unread {
				fmt.Printf("* %d unread, /list to see where\n", n)
			}
			unread = n
		case <-changes:
			if s := c.session(); s != nil {
				if s.Deleted() {
					c.closeDeleted(s)
					continue
				}
				c.printNew(s)
			}
		case <-tick.C:
			// a session opened since the last loop gets its channel picked up
		}
	}
}

func (c *client) printNew(s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != s {
		return
	}
	for _, m := range s.Messages() {
		key := m.ClientID
		if key == "" {
			key = m.ID
		}
		shown := printedState(m)
		if prev, seen := c.printed[key]; seen && prev == shown {
			continue
		}
		c.printed[key] = shown
		fmt.Println(c.format(m))
	}
	if typing := strings.Join(s.TypingUsers(), ", "); typing != c.typing {
		c.typing = typing
		if typing != "" {
			fmt.Printf("(%s typing...)\n", typing)
		}
	}
}

// printedState is what a printed line depends on besides the content.
func printedState(m model.Message) string {
	var b strings.Builder
	b.WriteString(m.State.String())
	for _, r := range m.Reactions {
		fmt.Fprintf(&b, "|%s:%s", r.UserID, r.Emoji)
	}
	return b.String()
}

func (c *client) format(m model.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", m.CreatedAt.Local().Format("15:04"), displayName(m), m.Content)
	if m.ReplyToID != "" {
		fmt.Fprintf(&b, " (re %s)", m.ReplyToID)
	}
	for _, r := range m.Reactions {
		fmt.Fprintf(&b, " %s", r.Emoji)
	}
	switch m.State {
	case model.Pending:
		b.WriteString(" …")
	case model.Failed:
		fmt.Fprintf(&b, " (failed, /retry %s)", m.ClientID)
	default:
		fmt.Fprintf(&b, "  #%s", m.ID)
	}
	return b.String()
}

func displayName(m model.Message) string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderID
}

func (c *client) printList() {
	convs := c.list.GetOrdered()
	if len(convs) == 0 {
		fmt.Println("no conversations yet, start one with /new <user-id>")
		return
	}
	for _, s := range convs {
		last := ""
		if s.LastMessage != nil {
			last = s.LastMessage.Text
		}
		unread := ""
		if s.UnreadCount > 0 {
			unread = fmt.Sprintf(" (%d)", s.UnreadCount)
		}
		fmt.Printf("%s  %s%s  %s\n", s.ID, s.Title(c.self.UserID), unread, last)
	}
}
