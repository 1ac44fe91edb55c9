// Command bundlectl trains a classifier from a CSV file and packs it into a
// bundle directory, or runs a saved bundle against a CSV file.
//
//	bundlectl train -data train.csv -name iris -root ./bundles
//	bundlectl predict -bundle ./bundles/iris/<version> -data rows.csv
//
// Training CSVs carry the 0/1 label in the last column.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	_ "bento-registry/internal/adapters/secondary/gbmlib"
	"bento-registry/internal/artifact"
	"bento-registry/internal/bundle"
	"bento-registry/internal/core/ports/output"
	"bento-registry/pkg/gbm"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "train":
		err = train(os.Args[2:])
	case "predict":
		err = predict(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bundlectl train|predict [flags]")
	os.Exit(2)
}

func train(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	data := fs.String("data", "", "training CSV, label in last column")
	name := fs.String("name", "", "bundle name")
	version := fs.String("version", "", "bundle version (generated when empty)")
	root := fs.String("root", "bundles", "bundle root directory")
	artifactName := fs.String("artifact", "model", "artifact name")
	ext := fs.String("ext", artifact.DefaultModelExtension, "model file extension (.json or .cbm)")
	iterations := fs.Int("iterations", 100, "boosting iterations")
	depth := fs.Int("depth", 4, "tree depth")
	lr := fs.Float64("learning-rate", 0.1, "learning rate")
	_ = fs.Parse(args)

	rows, err := readCSV(*data)
	if err != nil {
		return err
	}
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return fmt.Errorf("row %d: need at least one feature and a label", i+1)
		}
		X[i], y[i] = row[:len(row)-1], row[len(row)-1]
	}

	clf := gbm.NewClassifier(gbm.WithIterations(*iterations), gbm.WithDepth(*depth), gbm.WithLearningRate(*lr))
	if err := clf.Fit(X, y); err != nil {
		return fmt.Errorf("fit: %w", err)
	}

	svc, err := bundle.NewService(*name, *version, artifact.NewClassifierArtifact(*artifactName, artifact.WithModelExtension(*ext)))
	if err != nil {
		return err
	}
	if err := svc.Pack(*artifactName, clf); err != nil {
		return err
	}
	dir, err := svc.Save(*root)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"bundle": svc.Name() + ":" + svc.Version(),
		"path":   dir,
		"trees":  clf.TreeCount(),
	}).Info("bundle saved")
	return nil
}

func predict(args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	dir := fs.String("bundle", "", "bundle directory")
	data := fs.String("data", "", "CSV of feature rows")
	_ = fs.Parse(args)

	m, err := bundle.ReadManifest(*dir)
	if err != nil {
		return err
	}
	if len(m.Artifacts) == 0 {
		return fmt.Errorf("bundle %s:%s has no artifacts", m.Name, m.Version)
	}
	first := m.Artifacts[0]
	a := artifact.NewClassifierArtifact(first.Name, artifact.WithModelExtension(extOf(first.File, first.Name)))

	svc, err := bundle.Load(*dir, a)
	if err != nil {
		return err
	}
	loaded, err := svc.Artifact(first.Name)
	if err != nil {
		return err
	}
	clf, ok := loaded.Get().(ports.Classifier)
	if !ok {
		return fmt.Errorf("artifact %q is not a classifier", first.Name)
	}

	rows, err := readCSV(*data)
	if err != nil {
		return err
	}
	proba, err := clf.PredictProba(rows)
	if err != nil {
		return err
	}
	labels, err := clf.Predict(rows)
	if err != nil {
		return err
	}
	for i := range labels {
		fmt.Printf("%d,%.6f\n", labels[i], proba[i])
	}
	return nil
}

// extOf returns the extension part of an artifact file name.
func extOf(file, name string) string {
	if len(file) > len(name) {
		return file[len(name):]
	}
	return artifact.DefaultModelExtension
}

func readCSV(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	rows := make([][]float64, 0, len(records))
	for i, rec := range records {
		row := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				if i == 0 && len(rows) == 0 {
					row = nil
					break // header
				}
				return nil, fmt.Errorf("line %d column %d: %w", i+1, j+1, err)
			}
			row[j] = v
		}
		if row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
