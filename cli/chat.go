package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"chat-client/models"
	"chat-client/msgsync"
	"chat-client/rest"
	"chat-client/ws"
)

var chatCmd = &cobra.Command{
	Use:   "chat <conversation-id>",
	Short: "Open a conversation",
	Long: `Opens a conversation and keeps it live: one initial fetch seeds the
message list, then the realtime channel and a polling fallback both feed the
same reconciler. Type a line to send it. Commands:

  /image <path>   upload an image and send it
  /audio <path>   upload an audio clip and send it
  /file <path>    upload any file and send it
  /reply <id> <text>  reply to a message
  /reconnect      retry the realtime channel and refetch now
  /quit           leave the conversation`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	conversationID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("conversation id must be a number")
	}
	sess, err := currentSession()
	if err != nil {
		return err
	}
	api := apiClient(sess)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	view := newChatView(conversationID, sess.UserID, os.Stdout)
	view.loadNames(ctx, api)

	store := msgsync.NewStore()

	poller := msgsync.NewPoller(msgsync.PollerConfig{
		ConversationID: conversationID,
		Interval:       cfg.PollInterval,
		Fetch:          api.Messages,
		Store:          store,
		OnError:        func(err error) { view.notice("fetch failed: %v", err) },
	})
	defer poller.Stop()

	sock, err := ws.NewClient(ws.Config{
		URL:            cfg.WSURL(),
		Token:          sess.Token,
		Handler:        &eventBridge{store: store, view: view, conversationID: conversationID},
		DialTimeout:    cfg.DialTimeout,
		ReconnectMin:   cfg.ReconnectMin,
		ReconnectMax:   cfg.ReconnectMax,
		TypingInterval: cfg.TypingInterval,
		OnConnect:      poller.Wake,
	})
	if err != nil {
		return err
	}
	defer sock.Close()

	go sock.Run(ctx)
	sock.Join(conversationID)

	// seed the list before the first poll tick lands
	if msgs, err := api.Messages(ctx, conversationID); err != nil {
		view.notice("could not load history: %v", err)
	} else {
		store.Merge(conversationID, msgs)
	}
	// the poller's immediate first tick doubles as a consistency check
	go poller.Run(ctx)

	go view.follow(ctx, store)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		if line == "/reconnect" {
			if sock.Connected() {
				view.notice("realtime channel is up")
			} else {
				view.notice("reconnecting...")
				sock.Nudge()
			}
			poller.Wake()
			continue
		}

		content, replyTo, err := composeLine(ctx, api, line)
		if err != nil {
			view.notice("%v", err)
			continue
		}
		sock.Typing(conversationID)

		// sends go over REST: the round trip reports failures locally and
		// the returned entry lands in the store without waiting for the
		// echo event
		msg, err := api.SendMessage(ctx, conversationID, content, replyTo)
		if err != nil {
			view.notice("send failed: %v", err)
			continue
		}
		store.Merge(conversationID, []models.Message{*msg})
	}
	return scanner.Err()
}

// composeLine turns an input line into message content, uploading local
// files for the attachment commands.
func composeLine(ctx context.Context, api *rest.Client, line string) (string, *int64, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/image", "/audio", "/file":
		path := strings.TrimSpace(arg)
		if path == "" {
			return "", nil, fmt.Errorf("usage: %s <path>", cmd)
		}
		url, err := api.Upload(ctx, path)
		if err != nil {
			return "", nil, fmt.Errorf("upload failed: %w", err)
		}
		switch cmd {
		case "/image":
			return models.ImageContent(url), nil, nil
		case "/audio":
			return models.AudioContent(url), nil, nil
		default:
			return models.FileContent(url, baseName(path)), nil, nil
		}
	case "/reply":
		idStr, text, _ := strings.Cut(strings.TrimSpace(arg), " ")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || strings.TrimSpace(text) == "" {
			return "", nil, fmt.Errorf("usage: /reply <id> <text>")
		}
		return strings.TrimSpace(text), &id, nil
	default:
		if strings.HasPrefix(line, "/") {
			return "", nil, fmt.Errorf("unknown command %s", cmd)
		}
		return line, nil, nil
	}
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// eventBridge routes realtime events into the reconciler and the view.
// Message events for other conversations are ignored: merging them would
// reset the store to a conversation the user is not looking at.
type eventBridge struct {
	store          *msgsync.Store
	view           *chatView
	conversationID int64
}

func (b *eventBridge) HandleMessage(msg models.Message) {
	if msg.ConversationID != b.conversationID {
		return
	}
	b.store.Merge(b.conversationID, []models.Message{msg})
}

func (b *eventBridge) HandleConversation(conv models.Conversation) {
	b.view.notice("new conversation #%d started", conv.ID)
}

func (b *eventBridge) HandlePresence(userID int64, online bool) {
	state := "offline"
	if online {
		state = "online"
	}
	b.view.notice("%s is %s", b.view.name(userID), state)
}

func (b *eventBridge) HandleTyping(conversationID, userID int64) {
	if conversationID != b.conversationID {
		return
	}
	b.view.notice("%s is typing...", b.view.name(userID))
}

// chatView renders the store incrementally: each message is printed once,
// and printed again with a marker when an edit or deletion changes it.
type chatView struct {
	mu             sync.Mutex
	out            *os.File
	self           int64
	conversationID int64
	names          map[int64]string
	rendered       map[int64]string
}

func newChatView(conversationID, self int64, out *os.File) *chatView {
	return &chatView{
		out:            out,
		self:           self,
		conversationID: conversationID,
		names:          make(map[int64]string),
		rendered:       make(map[int64]string),
	}
}

// loadNames resolves participant usernames for the open conversation. Best
// effort: unknown senders render as user#id.
func (v *chatView) loadNames(ctx context.Context, api *rest.Client) {
	convs, err := api.Conversations(ctx)
	if err != nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, conv := range convs {
		if conv.ID != v.conversationID {
			continue
		}
		for _, p := range conv.Participants {
			v.names[p.ID] = p.Username
		}
	}
}

func (v *chatView) name(userID int64) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n, ok := v.names[userID]; ok {
		return n
	}
	return fmt.Sprintf("user#%d", userID)
}

// follow redraws whenever the store signals a change.
func (v *chatView) follow(ctx context.Context, store *msgsync.Store) {
	v.flush(store)
	for {
		select {
		case <-store.Changes():
			v.flush(store)
		case <-ctx.Done():
			return
		}
	}
}

func (v *chatView) flush(store *msgsync.Store) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range store.Messages() {
		key := renderKey(m)
		if v.rendered[m.ID] == key {
			continue
		}
		first := v.rendered[m.ID] == ""
		v.rendered[m.ID] = key

		name := v.names[m.SenderID]
		if name == "" {
			name = fmt.Sprintf("user#%d", m.SenderID)
		}
		if m.SenderID == v.self {
			name = "you"
		}

		marker := ""
		if !first {
			marker = " *"
		}
		reply := ""
		if m.ReplyToID != nil {
			reply = fmt.Sprintf(" (reply to #%d)", *m.ReplyToID)
		}
		fmt.Fprintf(v.out, "[%s] #%d %s:%s %s%s\n",
			m.CreatedAt.Local().Format("15:04"), m.ID, name, reply, previewText(m), marker)
	}
}

func (v *chatView) notice(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "  · "+format+"\n", args...)
}

// renderKey captures the renderable state of a message so edits and
// deletions trigger a reprint.
func renderKey(m models.Message) string {
	key := m.Content
	if m.EditedAt != nil {
		key += "|edited@" + m.EditedAt.Format(time.RFC3339Nano)
	}
	if m.DeletedAt != nil {
		key += "|deleted"
	}
	if key == "" {
		key = "|"
	}
	return key
}

// previewText renders message content for display, decoding tagged
// attachment payloads and masking deleted messages.
func previewText(m models.Message) string {
	if m.Deleted() {
		return "(message deleted)"
	}
	var text string
	switch att := models.ParseContent(m.Content); att.Kind {
	case models.KindImage:
		text = "[image] " + att.URL
	case models.KindAudio:
		text = "[audio] " + att.URL
	case models.KindFile:
		text = fmt.Sprintf("[file %s] %s", att.Name, att.URL)
	default:
		text = att.Text
	}
	if m.Edited() {
		text += " (edited)"
	}
	return text
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
