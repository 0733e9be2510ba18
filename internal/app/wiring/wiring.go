// Package wiring registers every application handler on the command and query
// buses and wraps them in the standard middleware chain.
package wiring

import (
	"log/slog"
	"time"

	"tumbi/internal/app/commands"
	chatapp "tumbi/internal/app/handlers/chat"
	listingapp "tumbi/internal/app/handlers/listings"
	mediaapp "tumbi/internal/app/handlers/media"
	profileapp "tumbi/internal/app/handlers/profile"
	savedapp "tumbi/internal/app/handlers/saved"
	"tumbi/internal/app/middleware"
	"tumbi/internal/app/outbox"
	"tumbi/internal/app/queries"
	"tumbi/internal/app/uow"
)

type Deps struct {
	Logger   *slog.Logger
	UoW      uow.UoWFactory
	Encoder  outbox.EventEncoder
	Uploader mediaapp.Uploader
	Now      func() time.Time
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
	// CommandKeys and QueryKeys list the registered handlers, for startup logging.
	CommandKeys []string
	QueryKeys   []string
}

func Build(d Deps) Buses {
	if d.Encoder == nil {
		d.Encoder = outbox.JSONEventEncoder{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, listingapp.CreateListingCommand{}.Key(),
		&listingapp.CreateListingHandler{Logger: d.Logger, Encoder: d.Encoder, Now: d.Now})
	commands.RegisterHandler(commandBus, listingapp.UpdateListingCommand{}.Key(),
		&listingapp.UpdateListingHandler{Logger: d.Logger, Encoder: d.Encoder, Now: d.Now})
	commands.RegisterHandler(commandBus, listingapp.DeleteListingCommand{}.Key(),
		&listingapp.DeleteListingHandler{Logger: d.Logger, Encoder: d.Encoder, Now: d.Now})
	commands.RegisterHandler(commandBus, listingapp.ViewListingCommand{}.Key(), &listingapp.ViewListingHandler{})
	commands.RegisterHandler(commandBus, savedapp.AddSavedCommand{}.Key(), &savedapp.AddSavedHandler{Logger: d.Logger, Now: d.Now})
	commands.RegisterHandler(commandBus, savedapp.RemoveSavedCommand{}.Key(), &savedapp.RemoveSavedHandler{})
	commands.RegisterHandler(commandBus, chatapp.StartConversationCommand{}.Key(),
		&chatapp.StartConversationHandler{Logger: d.Logger, Now: d.Now})
	commands.RegisterHandler(commandBus, chatapp.SendMessageCommand{}.Key(),
		&chatapp.SendMessageHandler{Logger: d.Logger, Encoder: d.Encoder, Now: d.Now})
	commands.RegisterHandler(commandBus, profileapp.UpdateProfileCommand{}.Key(),
		&profileapp.UpdateProfileHandler{Logger: d.Logger, Now: d.Now})
	commands.RegisterHandler(commandBus, mediaapp.UploadImagesCommand{}.Key(),
		&mediaapp.UploadImagesHandler{Logger: d.Logger, Uploader: d.Uploader})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, listingapp.SearchListingsQuery{}.Key(), &listingapp.SearchListingsHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, listingapp.ListingBySlugQuery{}.Key(), &listingapp.ListingBySlugHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, listingapp.VendorListingsQuery{}.Key(), &listingapp.VendorListingsHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, savedapp.SavedStatusQuery{}.Key(), &savedapp.SavedStatusHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, savedapp.SavedIDsQuery{}.Key(), &savedapp.SavedIDsHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, savedapp.SavedListingsQuery{}.Key(), &savedapp.SavedListingsHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, chatapp.ListConversationsQuery{}.Key(), &chatapp.ListConversationsHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, chatapp.MessagesQuery{}.Key(), &chatapp.MessagesHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, profileapp.PublicProfileQuery{}.Key(), &profileapp.PublicProfileHandler{UoWFactory: d.UoW})

	return Buses{
		Commands: middleware.ChainCommands(commandBus,
			middleware.Validation(middleware.SelfValidator{}),
			middleware.Authorization(middleware.RequireActor{}),
			middleware.Transaction(d.UoW, txOptions),
			middleware.Idempotency(middleware.JSONResultCodec{}),
		),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryValidation(middleware.SelfValidator{}),
			middleware.QueryAuthorization(middleware.RequireActor{}),
			middleware.ReadOnlyTransaction(d.UoW),
		),
		CommandKeys: commandBus.Keys(),
		QueryKeys:   queryBus.Keys(),
	}
}

// txOptions keeps uploads off a writable transaction; they only touch object storage.
func txOptions(cmd commands.Command) uow.TxOptions {
	if _, ok := cmd.(mediaapp.UploadImagesCommand); ok {
		return uow.TxOptions{ReadOnly: true}
	}
	return uow.TxOptions{}
}
