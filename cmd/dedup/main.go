package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"page-harvester/common"
	"page-harvester/internal/dedup"
	"page-harvester/internal/models"
	"page-harvester/internal/store"
)

func main() {
	confirm := flag.Bool("confirm", false, "Actually delete duplicates (default is a dry run)")
	clusters := flag.Bool("clusters", false, "Report similarity clusters instead of removing exact duplicates")
	flag.Parse()

	neo4jURI := common.GetEnv("NEO4J_URI", "neo4j://localhost:7687")
	neo4jUser := common.GetEnv("NEO4J_USER", "neo4j")
	neo4jPassword := common.GetEnv("NEO4J_PASSWORD", "neo4j")

	thresholds := dedup.DefaultThresholds()
	thresholds.High = common.ParseFloat(common.GetEnv("DEDUP_HIGH_THRESHOLD", ""), thresholds.High)
	thresholds.Duplicate = common.ParseFloat(common.GetEnv("DEDUP_DUPLICATE_THRESHOLD", ""), thresholds.Duplicate)
	thresholds.Title = common.ParseFloat(common.GetEnv("DEDUP_TITLE_THRESHOLD", ""), thresholds.Title)
	thresholds.Cluster = common.ParseFloat(common.GetEnv("DEDUP_CLUSTER_THRESHOLD", ""), thresholds.Cluster)
	thresholds.MinClusterSize = common.ParseInt(common.GetEnv("DEDUP_MIN_CLUSTER_SIZE", ""), thresholds.MinClusterSize)

	vectorStore, err := store.NewNeo4jVectorStore(neo4jURI, neo4jUser, neo4jPassword)
	if err != nil {
		log.Fatalf("neo4j driver error: %v", err)
	}
	defer func() {
		if err := vectorStore.Close(context.Background()); err != nil {
			log.Printf("neo4j close error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := dedup.NewEngine(vectorStore, thresholds)

	if *clusters {
		if err := runClusters(ctx, engine, os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := runRemoval(ctx, engine, *confirm, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// runRemoval executes one exact-duplicate pass and prints a report. Without
// confirm nothing is deleted; the report shows what a confirmed run over the
// same records would remove.
func runRemoval(ctx context.Context, engine *dedup.Engine, confirm bool, out io.Writer) error {
	stats, err := engine.RemoveExactDuplicates(ctx, confirm)
	if err != nil {
		return err
	}
	writeRemovalReport(out, stats)
	return nil
}

func writeRemovalReport(out io.Writer, stats models.RemovalStats) {
	mode := "CONFIRMED"
	if stats.DryRun {
		mode = "DRY RUN"
	}

	fmt.Fprintf(out, "Duplicate removal report (%s)\n", mode)
	fmt.Fprintf(out, "Total records:      %d\n", stats.TotalRecords)
	fmt.Fprintf(out, "Duplicate groups:   %d\n", stats.DuplicateGroups)
	fmt.Fprintf(out, "Records removed:    %d\n", len(stats.RemovedIDs))
	fmt.Fprintf(out, "Records kept:       %d\n", len(stats.KeptIDs))

	for i, group := range stats.Groups {
		fmt.Fprintf(out, "\nGroup %d (%d members)\n", i+1, len(group.MemberIDs))
		fmt.Fprintf(out, "  content: %s\n", group.Content)
		fmt.Fprintf(out, "  keep:    %s\n", group.KeepID)
		for _, id := range group.RemoveIDs {
			fmt.Fprintf(out, "  remove:  %s\n", id)
		}
	}

	if stats.DryRun && stats.DuplicateGroups > 0 {
		fmt.Fprintf(out, "\nDry run only. Re-run with -confirm to delete.\n")
	}
}

// runClusters prints the similarity clusters among stored records without
// modifying anything.
func runClusters(ctx context.Context, engine *dedup.Engine, out io.Writer) error {
	clusters, err := engine.Clusters(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Similarity cluster report\n")
	fmt.Fprintf(out, "Clusters found: %d\n", len(clusters))

	for i, cluster := range clusters {
		fmt.Fprintf(out, "\nCluster %d (%d members)\n", i+1, len(cluster.MemberIDs))
		fmt.Fprintf(out, "  representative: %s\n", cluster.RepresentativeID)
		for j, id := range cluster.MemberIDs[1:] {
			fmt.Fprintf(out, "  member: %s (similarity %.3f)\n", id, cluster.Scores[j])
		}
	}
	return nil
}
