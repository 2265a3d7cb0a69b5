// Package chatbot exposes the shortener as a Discord slash command.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/linkshrt/internal/logger"
	"github.com/patric-chuzhbe/linkshrt/internal/models"
)

const (
	commandName       = "shorten"
	optionOriginalURL = "original_url"
	optionCustomURL   = "custom_url"
)

const (
	colorError   = 0xE74C3C
	colorSuccess = 0x2ECC71
	titleError   = "Error"
	titleSuccess = "Success"
)

const (
	msgURLNotProvided    = "URL not provided"
	msgURLSchemeRequired = "URL must start with http:// or https://"
	msgInvalidCustomURL  = "Custom short URL must be alphanumeric and up to 10 characters long"
	msgCustomURLExists   = "Custom URL already exists"
	msgShortenFailed     = "Failed to shorten URL"
	msgTooBusy           = "The bot is too busy right now, try again later"
)

const (
	defaultWorkers        = 4
	defaultQueueCapacity  = 64
	defaultCommandTimeout = 10 * time.Second
)

type shortener interface {
	Shorten(ctx context.Context, originalURL, customToken string) (string, error)
	ShortURL(short string) string
}

// session is the part of *discordgo.Session the bot relies on.
type session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ApplicationCommandCreate(
		appID string,
		guildID string,
		cmd *discordgo.ApplicationCommand,
		options ...discordgo.RequestOption,
	) (*discordgo.ApplicationCommand, error)
	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error
	FollowupMessageCreate(
		interaction *discordgo.Interaction,
		wait bool,
		data *discordgo.WebhookParams,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

var shortenCommand = &discordgo.ApplicationCommand{
	Name:        commandName,
	Description: "Shorten a URL",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optionOriginalURL,
			Description: "The URL to shorten",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optionCustomURL,
			Description: "Alphanumeric token of up to 10 characters",
			Required:    false,
		},
	},
}

// Bot answers the shorten slash command of a single guild.
type Bot struct {
	session        session
	service        shortener
	guildID        string
	dispatcher     *Dispatcher
	commandTimeout time.Duration
	removeHandlers []func()
	stopDispatcher context.CancelFunc
}

type initOptions struct {
	workers        int
	queueCapacity  int
	commandTimeout time.Duration
}

// InitOption defines a functional option for New and NewWithSession.
type InitOption func(*initOptions)

// WithWorkers sets how many commands are processed concurrently.
func WithWorkers(workers int) InitOption {
	return func(options *initOptions) {
		options.workers = workers
	}
}

// WithQueueCapacity sets how many commands may wait for a free worker.
func WithQueueCapacity(capacity int) InitOption {
	return func(options *initOptions) {
		options.queueCapacity = capacity
	}
}

// WithCommandTimeout bounds the time spent on a single command.
func WithCommandTimeout(timeout time.Duration) InitOption {
	return func(options *initOptions) {
		options.commandTimeout = timeout
	}
}

// New creates a bot authenticated with the given bot token.
func New(botToken, guildID string, service shortener, optionsProto ...InitOption) (*Bot, error) {
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/chatbot/bot.go/New(): error while `discordgo.New()` calling: %w",
			err,
		)
	}
	s.Identify.Intents = discordgo.IntentsGuilds

	return NewWithSession(s, guildID, service, optionsProto...), nil
}

// NewWithSession creates a bot on top of an existing session.
func NewWithSession(s session, guildID string, service shortener, optionsProto ...InitOption) *Bot {
	options := &initOptions{
		workers:        defaultWorkers,
		queueCapacity:  defaultQueueCapacity,
		commandTimeout: defaultCommandTimeout,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	b := &Bot{
		session:        s,
		service:        service,
		guildID:        guildID,
		commandTimeout: options.commandTimeout,
	}
	b.dispatcher = NewDispatcher(options.workers, options.queueCapacity, b.handleJob)

	return b
}

// Run starts the workers and connects to the gateway. It returns once connected.
// Cancelling ctx does not abort commands already accepted; Close answers them first.
func (b *Bot) Run(ctx context.Context) error {
	dispatcherCtx, stopDispatcher := context.WithCancel(context.WithoutCancel(ctx))
	b.stopDispatcher = stopDispatcher

	b.dispatcher.Run(dispatcherCtx)
	b.dispatcher.ListenErrors(func(err error) {
		logger.Log.Errorln("Error passed from the `b.dispatcher.ListenErrors()`:", zap.Error(err))
	})

	b.removeHandlers = append(
		b.removeHandlers,
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onInteractionCreate),
	)

	if err := b.session.Open(); err != nil {
		b.removeAllHandlers()
		b.stopWorkers()
		return fmt.Errorf(
			"in internal/chatbot/bot.go/Run(): error while `b.session.Open()` calling: %w",
			err,
		)
	}

	return nil
}

// Close disconnects from the gateway and waits for queued commands to be answered.
func (b *Bot) Close() error {
	b.removeAllHandlers()
	err := b.session.Close()
	b.stopWorkers()

	return err
}

func (b *Bot) removeAllHandlers() {
	for _, remove := range b.removeHandlers {
		remove()
	}
	b.removeHandlers = nil
}

// stopWorkers drains the queue before cancelling the context the jobs run with.
func (b *Bot) stopWorkers() {
	b.dispatcher.Stop()
	if b.stopDispatcher != nil {
		b.stopDispatcher()
	}
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	logger.Log.Infof("Connected to discord as %s (ID: %s)", r.User.String(), r.User.ID)

	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}

	if _, err := b.session.ApplicationCommandCreate(appID, b.guildID, shortenCommand); err != nil {
		logger.Log.Errorln("unable to register the slash command", "guild_id", b.guildID, zap.Error(err))
		return
	}
	logger.Log.Infoln("slash command registered", "name", commandName, "guild_id", b.guildID)
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	if data.Name != commandName {
		return
	}

	job := &Job{Interaction: i.Interaction}
	for _, option := range data.Options {
		if option.Type != discordgo.ApplicationCommandOptionString {
			continue
		}
		switch option.Name {
		case optionOriginalURL:
			job.OriginalURL = option.StringValue()
		case optionCustomURL:
			job.CustomURL = option.StringValue()
		}
	}

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		logger.Log.Errorln("unable to defer the interaction response", zap.Error(err))
		return
	}

	if err := b.dispatcher.EnqueueJob(job); err != nil {
		logger.Log.Warnln("command rejected", zap.Error(err))
		if ferr := b.followup(job.Interaction, errorReply(msgTooBusy)); ferr != nil {
			logger.Log.Errorln("unable to send the follow-up message", zap.Error(ferr))
		}
	}
}

func (b *Bot) handleJob(ctx context.Context, job *Job) error {
	ctx, cancel := context.WithTimeout(ctx, b.commandTimeout)
	defer cancel()

	return b.followup(job.Interaction, b.shorten(ctx, job.OriginalURL, job.CustomURL))
}

func (b *Bot) followup(interaction *discordgo.Interaction, r reply) error {
	_, err := b.session.FollowupMessageCreate(interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{r.embed()},
	})
	if err != nil {
		return fmt.Errorf(
			"in internal/chatbot/bot.go/followup(): error while `FollowupMessageCreate()` calling: %w",
			err,
		)
	}

	return nil
}

type reply struct {
	success bool
	message string
}

func errorReply(message string) reply {
	return reply{success: false, message: message}
}

func successReply(message string) reply {
	return reply{success: true, message: message}
}

func (r reply) embed() *discordgo.MessageEmbed {
	if r.success {
		return &discordgo.MessageEmbed{Title: titleSuccess, Description: r.message, Color: colorSuccess}
	}

	return &discordgo.MessageEmbed{Title: titleError, Description: r.message, Color: colorError}
}

func (b *Bot) shorten(ctx context.Context, originalURL, customURL string) reply {
	if originalURL == "" {
		return errorReply(msgURLNotProvided)
	}

	if !strings.HasPrefix(originalURL, "http://") && !strings.HasPrefix(originalURL, "https://") {
		return errorReply(msgURLSchemeRequired)
	}

	short, err := b.service.Shorten(ctx, originalURL, customURL)
	switch {
	case err == nil:
		return successReply("URL: " + b.service.ShortURL(short))
	case errors.Is(err, models.ErrInvalidCustomToken):
		return errorReply(msgInvalidCustomURL)
	case errors.Is(err, models.ErrConflict):
		return errorReply(msgCustomURLExists)
	}

	logger.Log.Errorln("shorten command failed", zap.Error(err))

	return errorReply(msgShortenFailed)
}
