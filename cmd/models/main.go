package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"voxnote/models"
)

var (
	modelsDir = flag.String("dir", defaultModelsDir(), "директория для хранения моделей")
	kindFlag  = flag.String("kind", "", "фильтр списка по назначению: segmentation, embedding, vad")
)

func defaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(home, ".voxnote", "models")
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <command> [model-id]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  list              список доступных моделей\n")
	fmt.Fprintf(os.Stderr, "  download [id]     скачать модель (без id - рекомендуемый набор)\n")
	fmt.Fprintf(os.Stderr, "  delete <id>       удалить скачанную модель\n")
	fmt.Fprintf(os.Stderr, "  path <id>         путь к файлу модели\n\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	manager, err := models.NewManager(*modelsDir)
	if err != nil {
		log.Fatalf("Ошибка инициализации менеджера моделей: %v", err)
	}

	command := flag.Arg(0)
	switch command {
	case "list":
		listModels(manager, *kindFlag)
	case "download":
		if flag.Arg(1) == "" {
			downloadRecommended(manager)
		} else {
			downloadModel(manager, flag.Arg(1))
		}
	case "delete":
		deleteModel(manager, flag.Arg(1))
	case "path":
		printPath(manager, flag.Arg(1))
	default:
		fmt.Fprintf(os.Stderr, "Неизвестная команда: %s\n", command)
		os.Exit(2)
	}
}

func listModels(manager *models.Manager, kind string) {
	shown := make(map[string]bool)
	if kind != "" {
		filtered := models.GetModelsByKind(models.ModelKind(kind))
		if len(filtered) == 0 {
			log.Fatalf("Нет моделей с назначением %q", kind)
		}
		for _, m := range filtered {
			shown[m.ID] = true
		}
	}

	for _, state := range manager.GetAllModelsState() {
		if kind != "" && !shown[state.ID] {
			continue
		}
		marker := " "
		if state.Recommended {
			marker = "*"
		}
		fmt.Printf("%s %-35s %-12s %-8s %-14s %s\n",
			marker, state.ID, state.Kind, state.Size, state.Status, state.Name)
	}
	fmt.Println("\n* — рекомендуемая модель")
}

// downloadRecommended скачивает рекомендуемый набор моделей по очереди
func downloadRecommended(manager *models.Manager) {
	for _, info := range models.GetRecommendedModels() {
		downloadModel(manager, info.ID)
	}
}

func downloadModel(manager *models.Manager, modelID string) {
	if manager.IsModelDownloaded(modelID) {
		fmt.Printf("Модель %s уже скачана: %s\n", modelID, manager.GetModelPath(modelID))
		return
	}

	done := make(chan error, 1)
	manager.SetProgressCallback(func(id string, progress float64, status models.ModelStatus, err error) {
		switch status {
		case models.ModelStatusDownloading:
			fmt.Printf("\r%s: %.1f%%", id, progress)
		case models.ModelStatusDownloaded:
			fmt.Printf("\r%s: 100.0%%\n", id)
			done <- nil
		case models.ModelStatusError:
			fmt.Println()
			done <- err
		case models.ModelStatusNotDownloaded:
			fmt.Println()
			done <- fmt.Errorf("загрузка отменена")
		}
	})

	if err := manager.DownloadModel(modelID); err != nil {
		log.Fatalf("Ошибка запуска загрузки: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil {
			log.Fatalf("Ошибка загрузки: %v", err)
		}
		fmt.Printf("Модель сохранена: %s\n", manager.GetModelPath(modelID))
	case <-sigCh:
		manager.CancelDownload(modelID)
		<-done
		log.Fatal("Загрузка прервана")
	}
}

func deleteModel(manager *models.Manager, modelID string) {
	if modelID == "" {
		log.Fatal("Укажите ID модели")
	}
	if err := manager.DeleteModel(modelID); err != nil {
		log.Fatalf("Ошибка удаления: %v", err)
	}
	fmt.Printf("Модель %s удалена\n", modelID)
}

func printPath(manager *models.Manager, modelID string) {
	if modelID == "" {
		log.Fatal("Укажите ID модели")
	}
	path := manager.GetModelPath(modelID)
	if path == "" {
		log.Fatalf("Неизвестная модель: %s", modelID)
	}
	if !manager.IsModelDownloaded(modelID) {
		fmt.Fprintf(os.Stderr, "Модель не скачана (ожидаемый путь):\n")
	}
	fmt.Println(path)
}
