package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/Rutik-tetare29/Campushub-sub001/core"
	"github.com/Rutik-tetare29/Campushub-sub001/core/badge"
	"github.com/Rutik-tetare29/Campushub-sub001/core/checkin"
	"github.com/Rutik-tetare29/Campushub-sub001/core/token"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
	emailsvc "github.com/Rutik-tetare29/Campushub-sub001/services/email"
	logsvc "github.com/Rutik-tetare29/Campushub-sub001/services/logger"
	"github.com/Rutik-tetare29/Campushub-sub001/storage/database"
	sqlxrepos "github.com/Rutik-tetare29/Campushub-sub001/storage/database/sqlx"
)

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()
	if err = db.Ping(); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}
	dbx := sqlx.NewDb(db, conf.Database.Engine)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	codec := token.NewCodec(conf.SecretKey)
	usrRepo := sqlxrepos.NewUserRepository(dbx)
	checkinSvc := checkin.NewService(
		sqlxrepos.NewSessionRepository(dbx),
		sqlxrepos.NewRecordRepository(dbx),
		usrRepo, codec, mailSvc, logger, validate, conf,
	)
	badgeSvc := badge.NewService(sqlxrepos.NewBadgeRepository(dbx), usrRepo, codec, mailSvc, conf)

	// start CLI
	cli := commandLine{
		db:         db,
		usrRepo:    usrRepo,
		checkinSvc: checkinSvc,
		badgeSvc:   badgeSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func newTranslator() ut.Translator {
	enLocale := en.New()
	universal := ut.New(enLocale, enLocale)
	translator, _ := universal.GetTranslator(enLocale.Locale())
	return translator
}
