package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/blob"
	"app/internal/infra/cache"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続（プロセスで1回だけ開く）
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			log.Printf("db close: %v", err)
		}
	}()

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.StockItem{},
		&model.TransactionRecord{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenGormRepository(gormDB)
	balanceRepo := infraRepo.NewBalanceGormRepository(gormDB)
	txLogRepo := infraRepo.NewTransactionGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//画像の保存先
	blobStore, err := blob.NewFsStore(cfg.BlobDir)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	//Redisが設定されていれば冪等性チェックを有効にする
	var deduper usecase.RequestDeduper
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		deduper = cache.NewRedisDeduper(rdb)
		defer rdb.Close()
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, rtRepo, validator.NewAuthValidator())
	invUC := usecase.NewInventoryUsecase(txManager, balanceRepo, txLogRepo, blobStore, deduper)

	//Handler生成
	cookieSecure := cfg.GoEnv != "dev"
	authH := handler.NewAuthHandler(authUC, cookieSecure)
	invH := handler.NewInventoryHandler(invUC, cfg, userRepo)

	e := server.New(authH, invH)

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	go func() {
		if err := server.Start(e, addr); err != nil {
			log.Printf("server: %v", err)
		}
	}()

	//SIGINT/SIGTERMで止める
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx, e); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
