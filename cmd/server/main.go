package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Brownie44l1/paddy-api/internal/config"
	"github.com/Brownie44l1/paddy-api/internal/handlers"
	"github.com/Brownie44l1/paddy-api/internal/model"
	"github.com/Brownie44l1/paddy-api/internal/paddy"
	"github.com/Brownie44l1/paddy-api/internal/uploads"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// If running from cmd/server, resolve relative paths from the project root.
	if wd, err := os.Getwd(); err == nil && filepath.Base(wd) == "server" {
		cfg.Rebase(filepath.Join(wd, "../.."))
	}

	if err := model.InitRuntime(cfg.ORTLibraryPath); err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer model.DestroyRuntime()

	gatePaths := model.Paths{Model: cfg.ModelPath(cfg.GateModel), Metadata: cfg.ModelPath(cfg.GateMetadata)}
	diseasePaths := model.Paths{Model: cfg.ModelPath(cfg.DiseaseModel), Metadata: cfg.ModelPath(cfg.DiseaseMetadata)}

	log.Printf("Loading gate model from: %s", gatePaths.Model)
	log.Printf("Loading disease model from: %s", diseasePaths.Model)

	models, err := model.LoadModels(gatePaths, diseasePaths)
	if err != nil {
		log.Fatalf("Failed to load models: %v", err)
	}
	defer models.Close()

	pipeline, err := paddy.NewPipeline(paddy.Config{
		Gate:    models.Gate,
		Disease: models.Disease,
		Catalog: paddy.DefaultCatalog(),
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	store, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to open upload store: %v", err)
	}

	mux := http.NewServeMux()
	handlers.NewHandler(pipeline, store, cfg.MaxUploadBytes).Routes(mux)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Printf("Gate input: %v, disease input: %v", models.Gate.InputSize(), models.Disease.InputSize())
	log.Printf("Classes: %v", models.Disease.Metadata.Classes)
	log.Println("Endpoints:")
	log.Println("  GET  /health            - Health check")
	log.Println("  POST /predict           - Diagnose an uploaded leaf image")
	log.Println("  GET  /uploads/{name}    - Fetch a stored upload")
	log.Printf("Upload test: curl -X POST -F \"image=@leaf.jpg\" http://localhost:%s/predict", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
